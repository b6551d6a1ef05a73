package ui_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/csvgate/pkg/domain/model"
	"github.com/secmon-lab/csvgate/pkg/ui"
)

// syncBuffer guards a bytes.Buffer written from timer goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBanner(t *testing.T) {
	ctx := context.Background()

	t.Run("notify does not block and dismisses after delay", func(t *testing.T) {
		var out syncBuffer
		banner := ui.NewBanner(&out, ui.WithDismissAfter(200*time.Millisecond), ui.WithErase(true))

		start := time.Now()
		banner.Notify(ctx, model.NewNotification(model.OutcomeSuccess, "Success: ok"))
		gt.True(t, time.Since(start) < 200*time.Millisecond)
		gt.Equal(t, banner.Active(), 1)
		gt.S(t, out.String()).Contains("Success: ok")
		gt.False(t, strings.Contains(out.String(), "\033[J"))

		banner.Wait()
		gt.True(t, time.Since(start) >= 200*time.Millisecond)
		gt.Equal(t, banner.Active(), 0)
		gt.S(t, out.String()).Contains("\033[J")
	})

	t.Run("no erase sequence when erase is disabled", func(t *testing.T) {
		var out syncBuffer
		banner := ui.NewBanner(&out, ui.WithDismissAfter(10*time.Millisecond), ui.WithErase(false))

		banner.Notify(ctx, model.NewNotification(model.OutcomeServerError, "Error: boom"))
		banner.Wait()

		gt.S(t, out.String()).Contains("Error: boom")
		gt.False(t, strings.Contains(out.String(), "\033[J"))
	})

	t.Run("only the latest banner is erased", func(t *testing.T) {
		var out syncBuffer
		banner := ui.NewBanner(&out, ui.WithDismissAfter(20*time.Millisecond), ui.WithErase(true))

		banner.Notify(ctx, model.NewNotification(model.OutcomeSuccess, "Success: first"))
		banner.Notify(ctx, model.NewNotification(model.OutcomeSuccess, "Success: second"))
		banner.Wait()

		gt.Equal(t, strings.Count(out.String(), "\033[J"), 1)
	})

	t.Run("default delay is five seconds", func(t *testing.T) {
		gt.Equal(t, ui.DefaultDismissAfter, 5*time.Second)
	})
}

func TestAlert(t *testing.T) {
	ctx := context.Background()

	t.Run("interactive alert waits for enter", func(t *testing.T) {
		var out bytes.Buffer
		in := strings.NewReader("\n")
		alert := ui.NewAlert(&out, in, true)

		alert.Alert(ctx, "Please upload all the required files.")
		gt.S(t, out.String()).Contains("Please upload all the required files.")
		gt.S(t, out.String()).Contains("Press Enter")
		gt.Equal(t, in.Len(), 0)
	})

	t.Run("non interactive alert does not read input", func(t *testing.T) {
		var out bytes.Buffer
		in := strings.NewReader("\n")
		alert := ui.NewAlert(&out, in, false)

		alert.Notify(ctx, model.NewNotification(model.OutcomeTransactionFailure, "Transaction Failed: x"))
		gt.S(t, out.String()).Contains("Transaction Failed: x")
		gt.False(t, strings.Contains(out.String(), "Press Enter"))
		gt.Equal(t, in.Len(), 1)
	})
}

func TestSpinner(t *testing.T) {
	t.Run("silent loader tracks visibility", func(t *testing.T) {
		var out bytes.Buffer
		s := ui.NewSpinner(&out, "Uploading...")

		gt.False(t, s.Visible())
		s.Show()
		gt.True(t, s.Visible())
		s.Hide()
		gt.False(t, s.Visible())
		gt.Equal(t, out.Len(), 0)
	})

	t.Run("animated loader clears its line on hide", func(t *testing.T) {
		var out syncBuffer
		s := ui.NewSpinner(&out, "Uploading...", ui.WithAnimation(true))

		s.Show()
		s.Show()
		time.Sleep(50 * time.Millisecond)
		s.Hide()
		s.Hide()

		gt.S(t, out.String()).Contains("Uploading...")
		gt.True(t, strings.HasSuffix(out.String(), "\r\033[K"))
		gt.False(t, s.Visible())
	})
}
