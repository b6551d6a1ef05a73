package http

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/frontend"
	"github.com/secmon-lab/csvgate/pkg/domain/interfaces"
	"github.com/secmon-lab/csvgate/pkg/uploader"
)

// DefaultMaxUploadSize limits the total size of one upload request
const DefaultMaxUploadSize int64 = 32 << 20

// Server represents the HTTP server
type Server struct {
	*http.Server
	router chi.Router
}

type serverOptions struct {
	maxUploadSize int64
}

// Option configures the server
type Option func(*serverOptions)

// WithMaxUploadSize limits the request body of uploads
func WithMaxUploadSize(size int64) Option {
	return func(o *serverOptions) {
		o.maxUploadSize = size
	}
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	addr string,
	importUC interfaces.Import,
	tokens interfaces.TokenService,
	opts ...Option,
) (*Server, error) {
	options := serverOptions{maxUploadSize: DefaultMaxUploadSize}
	for _, opt := range opts {
		opt(&options)
	}

	tmpl, err := frontend.Templates()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse page templates")
	}
	static, err := frontend.GetStaticFS()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get embedded static files")
	}

	router := chi.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth)

	// Upload page and assets
	router.Get("/", newPageHandler(tmpl, tokens, options.maxUploadSize).ServeHTTP)
	router.Handle("/static/*", http.StripPrefix("/static", NewStaticHandler(static)))

	// Upload endpoint
	router.With(
		LimitBody(options.maxUploadSize),
		RequireCSRFToken(tokens),
	).Post(uploader.UploadPath, newUploadHandler(importUC).ServeHTTP)

	server := &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router: router,
	}

	return server, nil
}

// pageHandler renders the upload page with a fresh anti-forgery token
type pageHandler struct {
	tmpl    *template.Template
	tokens  interfaces.TokenService
	maxSize int64
}

func newPageHandler(tmpl *template.Template, tokens interfaces.TokenService, maxSize int64) *pageHandler {
	return &pageHandler{tmpl: tmpl, tokens: tokens, maxSize: maxSize}
}

func (h *pageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.Issue()
	if err != nil {
		ctxlog.From(r.Context()).Error("Failed to issue CSRF token", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.tmpl.ExecuteTemplate(w, "upload.html", frontend.UploadPage{
		Title:      "CSV Upload",
		Action:     uploader.UploadPath,
		CSRFToken:  token,
		MaxSizeMiB: h.maxSize >> 20,
	}); err != nil {
		ctxlog.From(r.Context()).Error("Failed to render upload page", "error", err)
	}
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "csvgate",
	}); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode health response", "error", err)
	}
}

// writeJSON writes v as a JSON response
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(ctx).Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response with a message safe to show users
func writeError(ctx context.Context, w http.ResponseWriter, message string, status int) {
	writeJSON(ctx, w, status, map[string]string{
		"error": message,
	})
}
