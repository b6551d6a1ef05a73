package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/m-mizutani/ctxlog"
)

// DefaultTimeout bounds background work started by Dispatch
const DefaultTimeout = 30 * time.Second

type config struct {
	timeout time.Duration
}

// Option configures Dispatch
type Option func(*config)

// WithTimeout overrides DefaultTimeout. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Dispatch runs handler in a goroutine so the caller can respond without
// waiting for it. The handler context keeps the values of ctx, including the
// logger, but is not cancelled with it. Errors and panics are logged.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error, opts ...Option) {
	cfg := config{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	newCtx := context.WithoutCancel(ctx)

	go func() {
		runCtx := newCtx
		if cfg.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(newCtx, cfg.timeout)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				ctxlog.From(runCtx).Error("Panic in async handler",
					"recover", r,
					"stack", string(debug.Stack()),
				)
			}
		}()

		if err := handler(runCtx); err != nil {
			ctxlog.From(runCtx).Error("Error in async handler",
				"error", err,
			)
		}
	}()
}
