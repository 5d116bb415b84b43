// Package api exposes the service's read-only HTTP surface: health,
// metrics, the loaded rule set, and recent tagging actions.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modtag/modtag/internal/audit"
	"github.com/modtag/modtag/internal/rules"
	"github.com/modtag/modtag/internal/telemetry"
)

// Server serves the observability endpoints. It never mutates the rule
// set; rules are reloaded only by restarting the process.
type Server struct {
	rules  []rules.Rule
	sink   audit.Sink
	dryRun bool
}

// NewServer creates the HTTP surface over the loaded rules and the
// audit sink. sink may be nil.
func NewServer(defs []rules.Rule, sink audit.Sink, dryRun bool) *Server {
	return &Server{rules: defs, sink: sink, dryRun: dryRun}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(telemetry.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/v1/rules", s.handleRules)
	r.Get("/v1/audit", s.handleAudit)

	return r
}

type rulesResponse struct {
	DryRun bool         `json:"dryRun"`
	Rules  []rules.Rule `json:"rules"`
}

func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rulesResponse{DryRun: s.dryRun, Rules: s.rules})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		writeError(w, http.StatusNotFound, "audit store not configured")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	actions, err := s.sink.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read audit store")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string][]audit.Action{"actions": actions})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
