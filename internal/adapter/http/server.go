package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/collapse-story-etl/internal/domain"
	"github.com/couchcryptid/collapse-story-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SnapshotSource provides the current snapshot and readiness state.
type SnapshotSource interface {
	CheckReadiness(ctx context.Context) error
	Snapshot() (pipeline.Snapshot, bool)
}

// Server exposes the story datasets plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer  *http.Server
	snapshots   SnapshotSource
	recentLimit int
	logger      *slog.Logger
}

// NewServer creates an HTTP server with the operational routes and the
// read-only /v1 dataset routes.
func NewServer(addr string, snapshots SnapshotSource, recentLimit int, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		snapshots:   snapshots,
		recentLimit: recentLimit,
		logger:      logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(snapshots))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/snapshot", s.withSnapshot(s.handleSnapshot))
	mux.HandleFunc("GET /v1/accidents", s.withSnapshot(s.handleAccidents))
	mux.HandleFunc("GET /v1/accidents/stats", s.withSnapshot(s.handleAccidentStats))
	mux.HandleFunc("GET /v1/media", s.withSnapshot(s.handleMedia))
	mux.HandleFunc("GET /v1/media/stats", s.withSnapshot(s.handleMediaStats))
	mux.HandleFunc("GET /v1/coverage", s.withSnapshot(s.handleCoverage))
	mux.HandleFunc("GET /v1/coverage/days/{date}", s.withSnapshot(s.handleCoverageDay))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type snapshotHandler func(w http.ResponseWriter, r *http.Request, snap pipeline.Snapshot)

// withSnapshot answers 503 until the first snapshot has been built.
func (s *Server) withSnapshot(next snapshotHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := s.snapshots.Snapshot()
		if !ok {
			writeError(w, http.StatusServiceUnavailable, pipeline.ErrSnapshotNotReady.Error())
			return
		}
		next(w, r, snap)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request, snap pipeline.Snapshot) {
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAccidents(w http.ResponseWriter, r *http.Request, snap pipeline.Snapshot) {
	records := domain.FilterByProvince(snap.Accidents, r.URL.Query().Get("province"))
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAccidentStats(w http.ResponseWriter, r *http.Request, snap pipeline.Snapshot) {
	province := r.URL.Query().Get("province")
	if province == "" {
		writeJSON(w, http.StatusOK, snap.AccidentStats)
		return
	}

	limit := s.recentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	records := domain.FilterByProvince(snap.Accidents, province)
	writeJSON(w, http.StatusOK, domain.AccidentStatisticsWithLimit(records, limit))
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request, snap pipeline.Snapshot) {
	records := snap.Media
	if r.URL.Query().Get("local") == "true" {
		records = domain.FilterLocalCoverage(records)
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleMediaStats(w http.ResponseWriter, _ *http.Request, snap pipeline.Snapshot) {
	writeJSON(w, http.StatusOK, snap.MediaStats)
}

func (s *Server) handleCoverage(w http.ResponseWriter, _ *http.Request, snap pipeline.Snapshot) {
	writeJSON(w, http.StatusOK, snap.Coverage)
}

func (s *Server) handleCoverageDay(w http.ResponseWriter, r *http.Request, snap pipeline.Snapshot) {
	date := r.PathValue("date")
	day, ok := snap.Coverage.Day(date)
	if !ok {
		writeError(w, http.StatusNotFound, "no coverage on "+date)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
