package config

import (
	"log/slog"

	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	slackSvc "github.com/secmon-lab/csvgate/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds Slack configuration for import reports
type Slack struct {
	OAuthToken string
	ChannelID  string
}

// Flags returns CLI flags for Slack configuration
func (s *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-oauth-token",
			Usage:       "Slack OAuth token for posting import reports",
			Category:    "Slack",
			Sources:     cli.EnvVars("CSVGATE_SLACK_OAUTH_TOKEN"),
			Destination: &s.OAuthToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID import reports are posted to",
			Category:    "Slack",
			Sources:     cli.EnvVars("CSVGATE_SLACK_CHANNEL"),
			Destination: &s.ChannelID,
		},
	}
}

// ConfigureOptional creates an import reporter if configured, returns nil if not
func (s *Slack) ConfigureOptional(logger *slog.Logger) interfaces.ImportReporter {
	if !s.IsConfigured() {
		logger.Info("Slack not configured - import reports are disabled")
		return nil
	}

	logger.Info("Configuring Slack import reporter", "channel", s.ChannelID)
	return slackSvc.NewReporter(slackSvc.New(s.OAuthToken), s.ChannelID)
}

// IsConfigured checks if both token and channel are set
func (s *Slack) IsConfigured() bool {
	return s.OAuthToken != "" && s.ChannelID != ""
}

// LogValue returns structured log value
func (s Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_oauth_token", s.OAuthToken != ""),
		slog.String("channel", s.ChannelID),
	)
}
