package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/monitor"
	"github.com/quotawatch/quotawatch/pkg/storage"
)

// Server exposes the latest snapshot, bounded history and the alert stream
// over HTTP. It is a read-only consumer of computed state, except for the
// manual-run and acknowledge endpoints.
type Server struct {
	store        storage.Store
	runner       *monitor.Runner
	router       chi.Router
	historyLimit int
	logger       *slog.Logger
}

// NewServer creates the API server. runner may be nil, in which case the
// manual-run endpoint answers 503.
func NewServer(store storage.Store, runner *monitor.Runner, historyLimit int, logger *slog.Logger) *Server {
	s := &Server{
		store:        store,
		runner:       runner,
		router:       chi.NewRouter(),
		historyLimit: historyLimit,
		logger:       logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/snapshots", s.handleSnapshots)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/alerts/summary", s.handleAlertSummary)
		r.Post("/alerts/{id}/ack", s.handleAcknowledge)
		r.Get("/recommendations", s.handleRecommendations)
		r.Post("/run", s.handleRun)
	})
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.LatestSnapshot(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "no snapshot yet", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("load latest snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := s.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if n < limit {
			limit = n
		}
	}

	snaps, err := s.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.logger.Error("list snapshots", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	state := model.AlertState(r.URL.Query().Get("state"))
	switch state {
	case "", model.AlertOpen, model.AlertEscalated, model.AlertClosed:
	default:
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	records, err := s.store.ListAlerts(r.Context(), state)
	if err != nil {
		s.logger.Error("list alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAlertSummary(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	summary, err := s.store.SummarizeAlerts(r.Context(), since)
	if err != nil {
		s.logger.Error("summarize alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.AcknowledgeAlert(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("acknowledge alert", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "acknowledged": "true"})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.LatestSnapshot(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "no snapshot yet", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("load latest snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Recommendations)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		http.Error(w, "manual runs not available", http.StatusServiceUnavailable)
		return
	}

	snap, err := s.runner.Run(r.Context())
	if errors.Is(err, monitor.ErrRetrievalTimeout) {
		http.Error(w, "usage retrieval timed out", http.StatusGatewayTimeout)
		return
	}
	if err != nil && snap == nil {
		s.logger.Error("manual evaluation pass failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err != nil {
		// Partial failure: the snapshot was still published.
		s.logger.Warn("manual evaluation pass partially failed", "error", err)
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
