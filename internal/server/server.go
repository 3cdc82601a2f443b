// Package server exposes the thin HTTP boundary over the ledger core:
// submit requests, poll status, and the authority-gated admin operations.
// Caller identity arrives in the X-Caller-Address header; authenticating
// that identity belongs to an outer layer.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tuma-ledger/internal/config"
)

// Server represents the HTTP server lifecycle.
type Server struct {
	httpServer *http.Server
	logger     *zerolog.Logger
}

// New constructs a Server instance using the provided router.
func New(logger *zerolog.Logger, cfg config.HTTPConfig, handler http.Handler) *Server {
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{httpServer: httpServer, logger: logger}
}

// Start begins listening for HTTP traffic.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully terminates all active connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
