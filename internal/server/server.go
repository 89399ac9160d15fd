// Package server exposes the calculator as a stateless HTTP endpoint. Each
// request carries a full configuration and receives the full result set;
// nothing is persisted between calls.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kevsynapthrive/oka-water-calculator/internal/calculation"
	"github.com/kevsynapthrive/oka-water-calculator/internal/config"
	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
)

// Server wires the engine and solver behind a chi router.
type Server struct {
	engine *calculation.Engine
	logger *zap.Logger
}

// New creates a server around the given engine.
func New(engine *calculation.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: engine, logger: logger}
}

// Router builds the HTTP routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/v1/calculate", s.handleCalculate)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCalculate runs one full recomputation pass over the posted
// configuration. Incomplete input comes back as 422 with the list of missing
// fields; malformed JSON is 400.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var cfg domain.Configuration
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	config.Normalize(&cfg)
	if err := config.Validate(&cfg); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	results, err := s.engine.RunAll(r.Context(), &cfg)
	if err != nil {
		s.logger.Error("calculation failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
