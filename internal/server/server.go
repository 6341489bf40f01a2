// Package server exposes the query and document admin operations over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Aman-CERP/docqa/internal/docs"
	"github.com/Aman-CERP/docqa/internal/index"
	"github.com/Aman-CERP/docqa/internal/search"
	"github.com/Aman-CERP/docqa/internal/telemetry"
)

// maxJSONBody caps the size of a JSON request body.
const maxJSONBody = 1 << 20

// Backend is the part of the service the HTTP API needs.
type Backend interface {
	Query(ctx context.Context, text string, opts search.Options) ([]search.Result, error)
	Reindex(ctx context.Context) (int, error)
	Current() *index.Index
}

// StatsBackend is implemented by backends that keep query statistics.
type StatsBackend interface {
	QueryStats() telemetry.Snapshot
}

// Dependencies contains the injected dependencies for Server.
type Dependencies struct {
	// Backend answers queries and rebuilds (required).
	Backend Backend

	// Docs manages the document directory (required).
	Docs *docs.Manager

	// MaxUploadBytes caps an uploaded document. Defaults to docs.DefaultMaxBytes.
	MaxUploadBytes int64

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// RateLimit caps /ask at this many requests per second with bursts of
	// up to Burst. Zero disables limiting.
	RateLimit float64
	Burst     int

	Logger *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	backend      Backend
	docs         *docs.Manager
	maxUpload    int64
	readTimeout  time.Duration
	writeTimeout time.Duration
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// New creates a Server with injected dependencies.
func New(deps Dependencies) (*Server, error) {
	if deps.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if deps.Docs == nil {
		return nil, fmt.Errorf("docs manager is required")
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = docs.DefaultMaxBytes
	}
	if deps.ReadTimeout <= 0 {
		deps.ReadTimeout = 30 * time.Second
	}
	if deps.WriteTimeout <= 0 {
		deps.WriteTimeout = 10 * time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	var limiter *rate.Limiter
	if deps.RateLimit > 0 {
		if deps.Burst < 1 {
			deps.Burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(deps.RateLimit), deps.Burst)
	}

	return &Server{
		backend:      deps.Backend,
		docs:         deps.Docs,
		maxUpload:    deps.MaxUploadBytes,
		readTimeout:  deps.ReadTimeout,
		writeTimeout: deps.WriteTimeout,
		limiter:      limiter,
		logger:       deps.Logger,
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("POST /ask", s.withRateLimit(http.HandlerFunc(s.handleAsk)))
	mux.HandleFunc("GET /admin/docs", s.handleListDocs)
	mux.HandleFunc("POST /admin/docs", s.handleUploadDoc)
	mux.HandleFunc("PUT /admin/docs/{name}", s.handleReplaceDoc)
	mux.HandleFunc("DELETE /admin/docs/{name}", s.handleDeleteDoc)
	mux.HandleFunc("POST /admin/reindex", s.handleReindex)
	mux.HandleFunc("GET /admin/stats", s.handleStats)

	return s.withRequestID(s.withLogging(s.withRecover(mux)))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http_server_started", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("http_server_stopped")
	return nil
}
