// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-passkey/pkg/health"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	passkeyhttp "github.com/jeremyhahn/go-passkey/pkg/passkey/http"
	"github.com/jeremyhahn/go-passkey/pkg/session"
)

// Server represents the passkey REST API server.
type Server struct {
	server  *http.Server
	handler *passkeyhttp.Handler
	checker *health.Checker
	host    string
	port    int
	logger  *slog.Logger
}

// Config holds the REST server configuration.
type Config struct {
	// Host is the interface to bind (default: all interfaces)
	Host string

	// Port is the HTTP port to listen on (default: 8080)
	Port int

	// Service is the passkey ceremony service (required)
	Service *passkey.Service

	// Sessions is the session marker manager (required)
	Sessions *session.Manager

	// Checker provides the health probe endpoints (optional)
	Checker *health.Checker

	// MetricsPath mounts the Prometheus endpoint when non-empty
	MetricsPath string

	// TLSConfig enables HTTPS when non-nil
	TLSConfig *tls.Config

	// Logger is the structured logger (optional, defaults to slog.Default)
	Logger *slog.Logger

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("passkey service is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}

	// Set defaults
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	checker := cfg.Checker
	if checker == nil {
		checker = health.NewChecker()
		checker.MarkStarted()
	}

	server := &Server{
		handler: passkeyhttp.NewHandler(cfg.Service, cfg.Sessions).WithLogger(logger),
		checker: checker,
		host:    cfg.Host,
		port:    cfg.Port,
		logger:  logger,
	}

	router := server.setupRouter(cfg.MetricsPath)

	server.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      router,
		TLSConfig:    cfg.TLSConfig,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return server, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter(metricsPath string) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(s.RecoveryMiddleware())
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)

	// Ceremony and session endpoints
	passkeyhttp.Mount(r, s.handler)

	// Kubernetes-style health probes
	r.Get("/healthz", s.checker.ReadyHandler())
	r.Get("/health/live", s.checker.LiveHandler())
	r.Get("/health/ready", s.checker.ReadyHandler())
	r.Get("/health/startup", s.checker.StartupHandler())

	if metricsPath != "" {
		r.Handle(metricsPath, promhttp.Handler())
	}

	return r
}

// Start starts the REST API server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		"host", s.host,
		"port", s.port,
		"tls", s.server.TLSConfig != nil)

	var err error
	if s.server.TLSConfig != nil {
		// Certificates come from TLSConfig
		err = s.server.ListenAndServeTLS("", "")
	} else {
		err = s.server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", "error", err)
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Router returns the configured router, for tests that mount it on an
// httptest server.
func (s *Server) Router() http.Handler {
	return s.server.Handler
}
