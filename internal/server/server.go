package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/10thony/prospector/internal/app"
)

// Server wraps the HTTP listener around the app's handlers
type Server struct {
	app    *app.App
	server *http.Server
	addr   string
}

// New wires the route table and middleware chain into an http.Server
func New(application *app.App) *Server {
	s := &Server{
		app:  application,
		addr: fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port),
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.withMiddleware(s.setupRoutes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start blocks serving requests until Shutdown is called
func (s *Server) Start() error {
	s.app.Logger.Info().
		Str("address", s.addr).
		Msg("API listening")

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests up to the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Str("address", s.addr).Msg("Stopping API server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
