package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tagforge/tagsync/common/logger"
)

// Server wraps HTTP server with graceful shutdown
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
	name       string
}

// New creates a new server. No read/write timeouts: the server carries
// long-lived WebSocket connections, and per-request timeouts would tear
// down healthy ones.
func New(name string, port int, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf(":%d", port),
			Handler:     handler,
			IdleTimeout: 120 * time.Second,
		},
		log:  log,
		name: name,
	}
}

// Start starts the server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for errors
	serverErrors := make(chan error, 1)

	// Start HTTP server
	go func() {
		s.log.Info(fmt.Sprintf("%s starting", s.name), "addr", s.httpServer.Addr)
		serverErrors <- s.httpServer.ListenAndServe()
	}()

	// Channel to listen for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until error or shutdown signal
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.log.Info("shutdown signal received", "signal", sig.String())

		// Give outstanding requests time to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Error("graceful shutdown failed", "error", err)
			if err := s.httpServer.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}

		s.log.Info("shutdown complete")
	}

	return nil
}