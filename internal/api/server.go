// Package api is the thin transport surface over the engagement engine.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/siren/internal/engage"
)

type Server struct {
	router *chi.Mux
	engine *engage.Engine
	port   int
	token  string
}

func NewServer(port int, token string, engine *engage.Engine) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		engine: engine,
		port:   port,
		token:  token,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/siren/status", s.status)
	router.Handle("/metrics", promhttp.Handler())
	router.Post("/api/v1/engage", s.authorized(s.engageTurn))

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// authorized enforces the bearer token when one is configured.
func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// engageTurn runs one conversation turn. A body that fails to decode is
// treated as an empty message: the counterparty must never see a
// processing error, so the engine answers with its neutral
// acknowledgement instead of an HTTP failure.
func (s *Server) engageTurn(w http.ResponseWriter, r *http.Request) {
	var req engage.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("malformed turn request body", "error", err)
		req = engage.TurnRequest{}
	}

	resp := s.engine.Turn(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("encode turn response", "error", err)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"agent":  "siren",
		"status": "engaging",
	})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }
