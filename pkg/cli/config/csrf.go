package config

import (
	"log/slog"
	"time"

	"github.com/secmon-lab/csvgate/pkg/service/csrf"
	"github.com/urfave/cli/v3"
)

// CSRF holds anti-forgery token configuration
type CSRF struct {
	Secret string
	TTL    time.Duration
}

// Flags returns CLI flags for CSRF configuration
func (c *CSRF) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "csrf-secret",
			Usage:       "Secret for signing anti-forgery tokens (random per process if empty)",
			Category:    "CSRF",
			Sources:     cli.EnvVars("CSVGATE_CSRF_SECRET"),
			Destination: &c.Secret,
		},
		&cli.DurationFlag{
			Name:        "csrf-ttl",
			Usage:       "Lifetime of anti-forgery tokens",
			Category:    "CSRF",
			Value:       csrf.DefaultTTL,
			Sources:     cli.EnvVars("CSVGATE_CSRF_TTL"),
			Destination: &c.TTL,
		},
	}
}

// Configure creates the token service
func (c *CSRF) Configure(logger *slog.Logger) (*csrf.Service, error) {
	if c.Secret == "" {
		logger.Warn("CSRF secret not set. Tokens will be invalidated on restart")
	}
	return csrf.New([]byte(c.Secret), csrf.WithTTL(c.TTL))
}

// LogValue returns structured log value
func (c CSRF) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_secret", c.Secret != ""),
		slog.Duration("ttl", c.TTL),
	)
}
