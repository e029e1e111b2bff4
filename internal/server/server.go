// Package server provides the local HTTP server: the JSON API, the gesture
// websocket feed, the camera preview and the static web page.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/pixelrelapse/handplay/internal/server/api"
	"github.com/pixelrelapse/handplay/internal/store"
)

// Config holds the server configuration. Routes whose collaborator is nil
// are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Playback  api.CommandRunner
	Detection api.Toggle
	Frames    FrameSource
	Hub       *Hub
	Auth      api.Authorizer
	Devices   api.DeviceSelector
}

// Server represents the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Playback != nil {
		h := api.NewPlaybackHandler(s.config.Playback)
		s.mux.Handle("/api/playback", h)
		s.mux.Handle("/api/playback/", h)
	}

	if s.config.Store != nil {
		h := api.NewEventsHandler(s.config.Store)
		s.mux.Handle("/api/events", h)
		s.mux.Handle("/api/events/", h)
	}

	if s.config.Auth != nil {
		s.mux.Handle("/api/auth/", api.NewAuthHandler(s.config.Auth))
	}

	if s.config.Devices != nil {
		s.mux.Handle("/api/devices", api.NewDevicesHandler(s.config.Devices))
	}

	if s.config.Detection != nil {
		s.mux.Handle("/api/detection", api.NewDetectionHandler(s.config.Detection))
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/ws", s.config.Hub)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("HTTP server listening on %s", addr)

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
