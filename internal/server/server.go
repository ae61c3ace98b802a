// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server is the reference conversion service: it accepts one
// uploaded document per request and answers with the Markdown rendering.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/markitdown-web/internal/certs"
	"github.com/pdiddy/markitdown-web/internal/convert"
	"github.com/pdiddy/markitdown-web/internal/transport"
	"github.com/pdiddy/markitdown-web/pkg/types"
)

const (
	DefaultAddr      = ":8443"
	DefaultRateLimit = 30

	healthMessage   = "Server is healthy"
	shutdownTimeout = 10 * time.Second
)

// Server serves the conversion API.
type Server struct {
	cfg  types.ServerConfig
	conv convert.Converter
	log  zerolog.Logger
}

// New returns a Server converting with conv.
func New(cfg types.ServerConfig, conv convert.Converter, log zerolog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{cfg: cfg, conv: conv, log: log}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(requestID)
	r.Use(s.requestLogger)
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors(s.cfg.AllowedOrigins))
	}

	r.Get(transport.HealthPath, s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(rateLimit(s.cfg.RateLimit, time.Minute))
		}
		if s.cfg.Token != "" {
			r.Use(bearerAuth(s.cfg.Token))
		}
		r.Post(transport.ConvertPath, s.handleConvert)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully. Unless PlainHTTP is set, it serves TLS with the configured
// pair, generating a self-signed one when missing.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
	}

	var certPath, keyPath string
	if !s.cfg.PlainHTTP {
		var err error
		certPath, keyPath, err = certs.Ensure(certs.Config{
			CertPath: s.cfg.CertFile,
			KeyPath:  s.cfg.KeyFile,
			Logger:   s.log,
		})
		if err != nil {
			return fmt.Errorf("preparing TLS certificate: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Bool("tls", !s.cfg.PlainHTTP).Msg("conversion server listening")
		if s.cfg.PlainHTTP {
			errCh <- srv.ListenAndServe()
		} else {
			errCh <- srv.ListenAndServeTLS(certPath, keyPath)
		}
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down conversion server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
