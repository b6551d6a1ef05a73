package config

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
	"github.com/secmon-lab/csvgate/pkg/ui"
	"github.com/urfave/cli/v3"
)

// Notify holds settings for how upload outcomes are shown
type Notify struct {
	Mode         string
	DismissAfter time.Duration
}

// Flags returns CLI flags for Notify configuration
func (n *Notify) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "notify",
			Usage:       "How to show the outcome (banner, alert)",
			Category:    "Notification",
			Value:       types.NotifyModeBanner.String(),
			Sources:     cli.EnvVars("CSVGATE_NOTIFY"),
			Destination: &n.Mode,
		},
		&cli.DurationFlag{
			Name:        "dismiss-after",
			Usage:       "How long a banner stays on screen",
			Category:    "Notification",
			Value:       ui.DefaultDismissAfter,
			Sources:     cli.EnvVars("CSVGATE_DISMISS_AFTER"),
			Destination: &n.DismissAfter,
		},
	}
}

// Notifiers are the presenters used by one upload run
type Notifiers struct {
	Notifier interfaces.Notifier
	Alerter  interfaces.Alerter
	// Banner is set in banner mode so callers can wait for dismissal
	Banner *ui.Banner
}

// Configure creates the outcome notifier and the missing-file alerter.
// Output goes to w; alerts wait for Enter on in when it is a terminal.
func (n *Notify) Configure(w io.Writer, in *os.File) (*Notifiers, error) {
	mode := types.NotifyMode(n.Mode)
	if !mode.IsValid() {
		return nil, goerr.New("invalid notify mode", goerr.V("notify", n.Mode))
	}

	alert := ui.NewAlert(w, in, ui.IsTerminal(in))
	if mode == types.NotifyModeAlert {
		return &Notifiers{Notifier: alert, Alerter: alert}, nil
	}

	banner := ui.NewBanner(w, ui.WithDismissAfter(n.DismissAfter))
	return &Notifiers{Notifier: banner, Alerter: alert, Banner: banner}, nil
}

// LogValue returns structured log value
func (n Notify) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mode", n.Mode),
		slog.Duration("dismiss_after", n.DismissAfter),
	)
}
