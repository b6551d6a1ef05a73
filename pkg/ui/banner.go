package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
)

// DefaultDismissAfter is how long a banner stays on screen
const DefaultDismissAfter = 5 * time.Second

// Banner shows each notification as a severity-coloured block that removes
// itself after a fixed delay. Notify never blocks.
type Banner struct {
	mu           sync.Mutex
	w            io.Writer
	dismissAfter time.Duration
	erase        bool
	wg           sync.WaitGroup
	seq          int
	active       int
}

// BannerOption configures a Banner
type BannerOption func(*Banner)

// WithDismissAfter sets how long a banner stays visible
func WithDismissAfter(d time.Duration) BannerOption {
	return func(b *Banner) {
		b.dismissAfter = d
	}
}

// WithErase controls whether dismissed banners are erased from the output.
// Erasing uses ANSI cursor movement and is only meaningful on a terminal.
func WithErase(erase bool) BannerOption {
	return func(b *Banner) {
		b.erase = erase
	}
}

// NewBanner creates a banner notifier writing to w
func NewBanner(w io.Writer, opts ...BannerOption) *Banner {
	b := &Banner{
		w:            w,
		dismissAfter: DefaultDismissAfter,
		erase:        IsTerminal(w),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Notify implements interfaces.Notifier
func (b *Banner) Notify(ctx context.Context, n model.Notification) {
	rendered := renderBanner(n.Severity, n.Text)
	lines := strings.Count(rendered, "\n") + 1

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.active++
	if _, err := fmt.Fprintln(b.w, rendered); err != nil {
		ctxlog.From(ctx).Warn("Failed to write banner", "error", err)
	}
	b.mu.Unlock()

	b.wg.Add(1)
	time.AfterFunc(b.dismissAfter, func() {
		defer b.wg.Done()
		b.dismiss(id, lines)
	})
}

// dismiss erases the banner if nothing was written after it
func (b *Banner) dismiss(id, lines int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active--
	if !b.erase || id != b.seq {
		return
	}
	// move up over the banner and clear to the end of the screen
	_, _ = fmt.Fprintf(b.w, "\033[%dA\033[J", lines)
}

// Active returns the number of banners not yet dismissed
func (b *Banner) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Wait blocks until every banner shown so far has been dismissed
func (b *Banner) Wait() {
	b.wg.Wait()
}
