// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/vigil/internal/config"
	"github.com/tomtom215/vigil/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Server runs the HTTP listener under supervision.
type Server struct {
	srv *http.Server
}

// NewServer builds the HTTP server. Read/write timeouts stay unset
// because the /ws endpoint holds connections open indefinitely; slow
// header attacks are bounded by ReadHeaderTimeout.
func NewServer(cfg *config.Config, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.ListenAddr(),
			Handler:           handler,
			ReadHeaderTimeout: cfg.Server.Timeout,
			IdleTimeout:       2 * time.Minute,
		},
	}
}

// String names the service in supervisor logs.
func (s *Server) String() string { return "http-server" }

// Serve runs the listener until the context is cancelled, then shuts
// down gracefully. Suture-compatible.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("graceful shutdown failed, closing")
			s.srv.Close()
		}
		return ctx.Err()
	}
}
