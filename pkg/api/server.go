// Package api is the midiwire REST API
//
// @title           midiwire REST API
// @version         1.0.0
// @description     Send MIDI packet lists to virtual endpoints and manage stored clips.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handler builds the HTTP routes for s
func (s *Server) Handler() http.Handler {
	m := s.metrics
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		// Endpoints
		r.Get("/endpoints", m.InstrumentHandler("GET", "/api/v1/endpoints", s.handleListEndpoints))
		r.Post("/endpoints/{name}", m.InstrumentHandler("POST", "/api/v1/endpoints/{name}", s.handleCreateEndpoint))
		r.Delete("/endpoints/{name}", m.InstrumentHandler("DELETE", "/api/v1/endpoints/{name}", s.handleDeleteEndpoint))
		r.Post("/endpoints/{name}/send", m.InstrumentHandler("POST", "/api/v1/endpoints/{name}/send", s.handleSend))

		// Clips
		r.Post("/clips", m.InstrumentHandler("POST", "/api/v1/clips", s.handleSaveClip))
		r.Get("/clips", m.InstrumentHandler("GET", "/api/v1/clips", s.handleListClips))
		r.Get("/clips/{id}", m.InstrumentHandler("GET", "/api/v1/clips/{id}", s.handleGetClip))
		r.Delete("/clips/{id}", m.InstrumentHandler("DELETE", "/api/v1/clips/{id}", s.handleDeleteClip))
		r.Post("/clips/{id}/play", m.InstrumentHandler("POST", "/api/v1/clips/{id}/play", s.handlePlayClip))
	})

	return r
}

// Addr returns the listen address from the server config
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port)
}

// ListenAndServe serves the API until ctx is cancelled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("api: listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
