package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
)

const alertPrompt = "Press Enter to continue..."

// Alert shows messages in a box and, when interactive, blocks until the user
// presses Enter.
type Alert struct {
	w           io.Writer
	in          *bufio.Reader
	interactive bool
}

// NewAlert creates an alert writing to w and reading acknowledgements from in.
// Pass interactive=false when in is not a terminal.
func NewAlert(w io.Writer, in io.Reader, interactive bool) *Alert {
	return &Alert{
		w:           w,
		in:          bufio.NewReader(in),
		interactive: interactive,
	}
}

// Alert implements interfaces.Alerter
func (a *Alert) Alert(ctx context.Context, message string) {
	a.show(ctx, types.SeverityError, message)
}

// Notify implements interfaces.Notifier
func (a *Alert) Notify(ctx context.Context, n model.Notification) {
	a.show(ctx, n.Severity, n.Text)
}

func (a *Alert) show(ctx context.Context, severity types.Severity, text string) {
	logger := ctxlog.From(ctx)

	if _, err := fmt.Fprintln(a.w, renderAlert(severity, text)); err != nil {
		logger.Warn("Failed to write alert", "error", err)
		return
	}
	if !a.interactive {
		return
	}

	if _, err := fmt.Fprint(a.w, alertPrompt); err != nil {
		logger.Warn("Failed to write alert prompt", "error", err)
		return
	}
	if _, err := a.in.ReadString('\n'); err != nil && err != io.EOF {
		logger.Warn("Failed to read alert acknowledgement", "error", err)
	}
}
