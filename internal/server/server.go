// Package server provides HTTP server wiring and lifecycle management.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fedpact/fedpact-go/internal/api"
	"github.com/fedpact/fedpact-go/internal/config"
	"github.com/fedpact/fedpact-go/internal/logutil"
)

// Server wraps the HTTP server and its routes.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a server around the API handler.
func New(cfg *config.Config, h *api.Handler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logutil.NoopIfNil(logger),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.setupRoutes(h),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		"addr", s.cfg.ListenAddr,
		"tls_mode", s.cfg.TLS.Mode,
	)

	switch s.cfg.TLS.Mode {
	case "off":
		return s.httpServer.ListenAndServe()
	case "static":
		return s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	default:
		return fmt.Errorf("invalid tls mode %q", s.cfg.TLS.Mode)
	}
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
