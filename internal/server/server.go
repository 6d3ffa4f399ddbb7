// Package server exposes the local health check runtime over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/watzon/healthcheck/internal/checker"
	"github.com/watzon/healthcheck/internal/metrics"
	"github.com/watzon/healthcheck/internal/server/handlers"
	"github.com/watzon/healthcheck/internal/targets"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Minute
	defaultIdleTimeout  = 2 * time.Minute
)

// Config holds what the server exposes.
type Config struct {
	Addr string
	// Endpoint is the path the aggregate document is served on, without the leading slash.
	Endpoint string
	Format   map[string]any
	Plan     targets.Plan
	Version  string
}

type Server struct {
	cfg        Config
	httpServer *http.Server
	handler    http.Handler
}

type Option func(*Server)

// WithMiddleware replaces the default middleware chain.
func WithMiddleware(mws ...Middleware) Option {
	return func(s *Server) {
		s.handler = Chain(s.handler, mws...)
	}
}

// New builds the routes. The default chain is recovery, request id, logging, metrics.
func New(cfg Config, c *checker.Checker, history *checker.History, opts ...Option) *Server {
	mux := http.NewServeMux()

	health := handlers.NewHealthHandlers(history, cfg.Version)
	endpoint := "/" + strings.TrimPrefix(cfg.Endpoint, "/")
	mux.Handle("GET "+endpoint, handlers.NewCheckHandler(c, cfg.Plan, cfg.Format, history))

	// The configured endpoint wins over a built-in route on the same path.
	builtins := map[string]http.Handler{
		"/healthz": http.HandlerFunc(health.Liveness),
		"/runs":    http.HandlerFunc(health.Runs),
		"/metrics": metrics.Handler(),
	}
	for path, h := range builtins {
		if path == endpoint {
			log.Warn().Str("path", path).Msg("Endpoint shadows built-in route")
			continue
		}
		mux.Handle("GET "+path, h)
	}

	srv := &Server{cfg: cfg, handler: mux}
	if len(opts) == 0 {
		opts = []Option{WithMiddleware(RecoveryMiddleware, RequestIDMiddleware, LoggingMiddleware, MetricsMiddleware)}
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.handler,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}
	return srv
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown is called or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log.Info().
		Str("addr", ln.Addr().String()).
		Str("endpoint", "/"+strings.TrimPrefix(s.cfg.Endpoint, "/")).
		Int("targets", len(s.cfg.Plan.Targets)).
		Msg("Starting server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Error shutting down server")
		}
	}()

	err := s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}
