package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/uploader"
)

// MessageCSRFFailed is returned when the anti-forgery token is missing or invalid
const MessageCSRFFailed = "CSRF verification failed."

// RequireCSRFToken rejects requests without a valid anti-forgery token. The
// token is read from the X-CSRFToken header, or from the form field when the
// header is absent. A body over the LimitBody cap is answered with 413 before
// the token is checked.
func RequireCSRFToken(tokens interfaces.TokenService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := ctxlog.From(ctx)

			token := r.Header.Get(uploader.HeaderCSRFToken)
			source := "header"
			if token == "" {
				source = "form"
				if err := r.ParseMultipartForm(maxMemory); err != nil {
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						logger.Warn("Upload exceeds size limit", "limit", tooLarge.Limit)
						removeMultipart(ctx, r)
						writeError(ctx, w, MessageTooLarge, http.StatusRequestEntityTooLarge)
						return
					}
					if !errors.Is(err, http.ErrNotMultipart) {
						logger.Warn("Failed to parse form for CSRF token", "error", err)
					}
				}
				token = r.FormValue(uploader.InputCSRFToken)
			}

			if err := tokens.Verify(token); err != nil {
				logger.Warn("CSRF verification failed",
					"error", err,
					"source", source,
				)
				removeMultipart(ctx, r)
				writeError(ctx, w, MessageCSRFFailed, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func removeMultipart(ctx context.Context, r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		ctxlog.From(ctx).Warn("Failed to remove multipart temp files", "error", err)
	}
}

// LimitBody caps the request body size
func LimitBody(size int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware creates a chi-compatible logging middleware
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Embed logger from the initial context into request context
			logger := ctxlog.From(ctx).With("request_id", middleware.GetReqID(r.Context()))
			r = r.WithContext(ctxlog.With(r.Context(), logger))

			start := time.Now()

			// Wrap response writer to capture status
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// Process request
			next.ServeHTTP(ww, r)

			// Log request
			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}
