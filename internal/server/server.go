// Package server exposes registration and job control over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/thomaskoefod/digestr/internal/scheduler"
	"github.com/thomaskoefod/digestr/pkg/models"
)

// Registrar creates users with their interests.
type Registrar interface {
	CreateUser(ctx context.Context, email string, freq models.Frequency, keywords []string) (*models.User, error)
}

// Jobs starts scheduled tasks on demand and reports their state.
type Jobs interface {
	Trigger(name string) error
	Status() []scheduler.TaskStatus
}

type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	users      Registrar
	jobs       Jobs
	log        zerolog.Logger
}

func New(addr string, users Registrar, jobs Jobs, log zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		users:  users,
		jobs:   jobs,
		log:    log.With().Str("component", "http").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Post("/register", s.handleRegister)
	s.router.Post("/jobs/{job}/run", s.handleRunJob)
}

// requestLogger logs each request through zerolog once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) Router() *chi.Mux {
	return s.router
}
