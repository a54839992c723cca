// Package api exposes the pipeline over HTTP: the latest snapshot, the
// alert log with acknowledgement, recommendations, health, and metrics.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rigwatch/pkg/pipeline"
	"rigwatch/pkg/store"
)

// Backend is the pipeline surface the API serves.
type Backend interface {
	Snapshot() pipeline.Snapshot
	Alerts() *store.AlertLog
}

// Server is the HTTP front of one Runner.
type Server struct {
	backend   Backend
	jwtSecret []byte
}

// NewServer builds the API. An empty jwtSecret disables auth on mutating
// routes, intended for development only.
func NewServer(backend Backend, jwtSecret string) *Server {
	if jwtSecret == "" {
		log.Printf("[api] WARNING: no JWT secret configured, mutating routes are unauthenticated")
	}
	return &Server{backend: backend, jwtSecret: []byte(jwtSecret)}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/latest", s.handleLatest)
	mux.HandleFunc("GET /api/v1/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/v1/recommendations", s.handleRecommendations)
	mux.Handle("POST /api/v1/alerts/{id}/acknowledge", s.requireAuth(http.HandlerFunc(s.handleAcknowledge)))
	return logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.backend.Snapshot()
	status := "ok"
	code := http.StatusOK
	// A snapshot older than a minute means the loop stalled.
	if snap.Cycles == 0 || time.Since(snap.UpdatedAt) > time.Minute {
		status = "stale"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"cycles":     snap.Cycles,
		"updated_at": snap.UpdatedAt,
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	snap := s.backend.Snapshot()
	if snap.Cycles == 0 {
		writeError(w, http.StatusNotFound, "no data yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	alerts := s.backend.Alerts().Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts":         alerts,
		"unacknowledged": s.backend.Alerts().Unacknowledged(),
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, _ *http.Request) {
	snap := s.backend.Snapshot()
	if snap.Cycles == 0 {
		writeError(w, http.StatusNotFound, "no data yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp":       snap.UpdatedAt,
		"recommendations": snap.Recommendations,
	})
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing alert id")
		return
	}
	if !s.backend.Alerts().Acknowledge(id) {
		writeError(w, http.StatusNotFound, "unknown alert id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"acknowledged": id})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[api] %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}
