// Package httpapi exposes the status endpoints the hosting platform polls:
// a root status document and a /health probe for keep-alive pings.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/roelfdiedericks/aibolit/internal/gateway"
	. "github.com/roelfdiedericks/aibolit/internal/logging"
)

// Server is the status HTTP server.
type Server struct {
	server *http.Server
	gw     *gateway.Gateway
}

// New builds the server on the given listen address.
func New(listen string, gw *gateway.Gateway) *Server {
	s := &Server{gw: gw}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleStatus)
	r.Get("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:              listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

type statusResponse struct {
	Status      string `json:"status"`
	BotType     string `json:"bot_type"`
	Model       string `json:"model"`
	KeyIndex    int    `json:"key_index,omitempty"`
	KeyCount    int    `json:"api_keys_available"`
	ActiveUsers int    `json:"active_users"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	model, keyIdx, ok := s.gw.ActiveModel()
	resp := statusResponse{
		Status:      "Alive",
		BotType:     "Medical Assistant",
		Model:       model,
		KeyCount:    s.gw.KeyCount(),
		ActiveUsers: s.gw.ActiveUsers(),
	}
	if ok {
		resp.KeyIndex = keyIdx + 1
	} else {
		resp.Model = "Searching..."
	}
	writeJSON(w, resp)
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelName   string `json:"model_name,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	model, _, ok := s.gw.ActiveModel()
	writeJSON(w, healthResponse{
		Status:      "ok",
		ModelLoaded: ok,
		ModelName:   model,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		L_debug("httpapi: response encode failed", "error", err)
	}
}

// Start runs the server in a goroutine.
func (s *Server) Start() {
	go func() {
		L_info("httpapi: listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			L_error("httpapi: server failed", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
