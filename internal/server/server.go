// Package server exposes the scrape pipeline over HTTP for browser-driven
// clients: one endpoint advances a session by one target, one reports
// progress for polling, one closes the session early.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/pipeline"
)

// Server is the HTTP front of the scraper.
type Server struct {
	orch       *pipeline.Orchestrator
	httpServer *http.Server
}

// New creates the server bound to addr.
func New(addr string, orch *pipeline.Orchestrator) *Server {
	s := &Server{orch: orch}
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	return s
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Scrape requests drive a headless browser; give them room.
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scrape", s.handleScrape())
		r.Get("/scrape/progress", s.handleProgress())
		r.Post("/scrape/close", s.handleClose())
	})

	return r
}

// ListenAndServe runs the server until the context is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
