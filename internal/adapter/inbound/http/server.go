package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// shutdownTimeout bounds graceful shutdown of the admin listener.
const shutdownTimeout = 10 * time.Second

// AdminServer serves /metrics and /health on its own listener.
type AdminServer struct {
	gatherer      prometheus.Gatherer
	server        *http.Server
	addr          string
	logger        *slog.Logger
	healthChecker *HealthChecker
}

// Option is a functional option for configuring AdminServer.
type Option func(*AdminServer)

// WithAddr sets the listen address. Default is "127.0.0.1:9090".
func WithAddr(addr string) Option {
	return func(s *AdminServer) {
		s.addr = addr
	}
}

// WithLogger sets the logger for the admin server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *AdminServer) {
		s.logger = logger
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(s *AdminServer) {
		s.healthChecker = hc
	}
}

// NewAdminServer creates an admin server exposing gatherer on /metrics.
func NewAdminServer(gatherer prometheus.Gatherer, opts ...Option) *AdminServer {
	s := &AdminServer{
		gatherer: gatherer,
		addr:     "127.0.0.1:9090",
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the routed handler with middleware applied.
func (s *AdminServer) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.healthChecker != nil {
		mux.Handle("GET /health", s.healthChecker.Handler())
	} else {
		mux.Handle("GET /health", NewHealthChecker(nil, nil, "").Handler())
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return RequestIDMiddleware(s.logger)(mux)
}

// Start begins serving. It blocks until the context is cancelled or the
// listener fails.
func (s *AdminServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting admin HTTP server", "addr", s.addr)
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *AdminServer) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("error during admin server shutdown", "error", err)
		return err
	}

	s.logger.Info("admin HTTP server shutdown complete")
	return nil
}
