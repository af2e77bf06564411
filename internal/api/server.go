// Package api exposes the ingestion and query pipelines over HTTP.
//
// Endpoints:
//
//	POST /api/v1/documents        upload a file, process it, return chunk count
//	GET  /api/v1/documents        list the owner's documents
//	GET  /api/v1/documents/{id}   poll one document's processing status
//	POST /api/v1/query            answer a question against the owner's corpus
//	GET  /healthz                 liveness probe
//
// Handlers are plumbing only: validation and JSON shaping here, semantics
// in the orchestrators. The caller's identity arrives in the X-Owner-ID
// header; authenticating that identity is an upstream concern.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/grovekit/grove/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout bounds reading the entire request, uploads included.
	ReadTimeout = 60 * time.Second

	// WriteTimeout bounds writing the response; generation calls sit
	// inside it.
	WriteTimeout = 120 * time.Second

	// IdleTimeout bounds keep-alive connections between requests.
	IdleTimeout = 120 * time.Second

	// ownerHeader carries the caller's owner id.
	ownerHeader = "X-Owner-ID"
)

// Config tunes the server surface.
type Config struct {
	// RatePerSecond is the per-IP request rate. Zero disables limiting.
	RatePerSecond float64

	// RateBurst is the per-IP burst allowance.
	RateBurst int
}

// Server routes HTTP requests to the orchestrators.
type Server struct {
	mux     *http.ServeMux
	cfg     Config
	logger  log.Logger
	limiter *rateLimiter

	documents *DocumentHandler
	query     *QueryHandler
	health    *HealthHandler
}

// NewServer creates a server with all routes registered.
func NewServer(documents *DocumentHandler, query *QueryHandler, health *HealthHandler, cfg Config, logger log.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:       http.NewServeMux(),
		cfg:       cfg,
		logger:    logger.With("component", "api"),
		documents: documents,
		query:     query,
		health:    health,
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = newRateLimiter(cfg.RatePerSecond, burst)
	}

	s.documents.RegisterRoutes(s.mux)
	s.query.RegisterRoutes(s.mux)
	s.health.RegisterRoutes(s.mux)
	return s
}

// Handler returns the mux with middleware applied.
// Order: recovery → logging → rate limit → handler.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	}
	if s.limiter != nil {
		middlewares = append(middlewares, s.limiter.middleware)
	}
	return chain(s.mux, middlewares...)
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// ownerID extracts the caller's owner id, writing a 400 when absent.
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeError(w, http.StatusBadRequest, "missing_owner", ownerHeader+" header is required")
		return "", false
	}
	return owner, true
}
