// Package server provides the HTTP server for SignLens.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/signlens/internal/app"
	"github.com/ayusman/signlens/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	// App is required for the websocket and REST endpoints; without it only
	// health and static files are served.
	App *app.App
	// BaseContext bounds background work started by requests, such as
	// dataset builds. Defaults to context.Background.
	BaseContext context.Context
}

// Server represents the HTTP server for the SignLens application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.BaseContext == nil {
		config.BaseContext = context.Background()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		s.mux.Handle("/ws", NewEventHandler(a))
		s.mux.Handle("/api/models", api.NewModelsHandler(a.Models()))

		sessions := api.NewSessionsHandler(a.Store())
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)

		sentences := api.NewSentenceHandler(a.Store())
		s.mux.Handle("/api/sentences", sentences)
		s.mux.Handle("/api/sentences/", sentences)

		s.mux.Handle("/api/captures", api.NewCaptureHandler(a.Saver(), a.Store()))
		s.mux.Handle("/api/dataset", api.NewDatasetHandler(s.config.BaseContext, a.Builder()))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions := 0
	if s.config.App != nil {
		sessions = s.config.App.Sessions().Count()
	}

	response := map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.start).String(),
		"sessions": sessions,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
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
		return err
	}
	return nil
}
