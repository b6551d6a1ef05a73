package apperr

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Handle logs an error that cannot be returned to the caller. Values attached
// with goerr.V are logged alongside the message.
func Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	logger := ctxlog.From(ctx)
	if goErr := goerr.Unwrap(err); goErr != nil {
		logger.Error("application error", "error", err, "values", goErr.Values())
		return
	}
	logger.Error("application error", "error", err)
}
