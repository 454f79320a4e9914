package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"traderwatch/internal/api/health"
	"traderwatch/internal/metrics"
	"traderwatch/pkg/errors"
	"traderwatch/pkg/logger"
)

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	Addr        string
	ServiceName string
	Version     string
}

// Server wraps the HTTP server with lifecycle management. It carries the
// operational surface only: probes, metrics, and a service-info root.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures the HTTP server with all routes.
func NewServer(cfg ServerConfig, healthHandler *health.Handler) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/ready", healthHandler.HandleReadiness)
	mux.HandleFunc("/live", healthHandler.HandleLiveness)
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":"%s","version":"%s","status":"running"}`,
			cfg.ServiceName, cfg.Version)
	})

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: logger.Get().With("component", "http_server"),
	}
}

// Start begins listening for HTTP requests and blocks until the server stops.
func (s *Server) Start() error {
	s.log.Infow("Starting HTTP server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}
	s.log.Infow("HTTP server stopped")
	return nil
}
