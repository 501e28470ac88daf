// Package http exposes health, metrics, and the query/export API over HTTP.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/export"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Store is the query surface the API reads from.
type Store interface {
	LatestReading(ctx context.Context) (domain.Reading, bool, error)
	ReadingsSince(ctx context.Context, since time.Time, limit int) ([]domain.Reading, error)
	ReadingsBetween(ctx context.Context, start, end time.Time) ([]domain.Reading, error)
	AnomaliesSince(ctx context.Context, since time.Time, limit int) ([]domain.AnomalyRecord, error)
	AnomaliesBetween(ctx context.Context, start, end time.Time, limit int) ([]domain.AnomalyRecord, error)
	DailyAggregatesSince(ctx context.Context, sinceDate string, limit int) ([]domain.DailyAggregate, error)
	DailyAggregatesBetween(ctx context.Context, startDate, endDate string, limit int) ([]domain.DailyAggregate, error)
	LogsSince(ctx context.Context, since time.Time, limit int) ([]domain.ProcessingLogEntry, error)
}

// Trigger requests an out-of-band collection run. The call acknowledges
// immediately; outcomes are observable via the audit trail.
type Trigger interface {
	TriggerCollect(location string)
}

// Server exposes the monitoring API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer      *http.Server
	store           Store
	trigger         Trigger
	defaultLocation string
	logger          *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, ready ReadinessChecker, store Store, trigger Trigger, defaultLocation string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:           store,
		trigger:         trigger,
		defaultLocation: defaultLocation,
		logger:          logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/current", s.handleCurrent)
	mux.HandleFunc("GET /api/hourly", s.handleHourly)
	mux.HandleFunc("GET /api/daily", s.handleDaily)
	mux.HandleFunc("GET /api/anomalies", s.handleAnomalies)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("POST /api/collect", s.handleCollect)
	mux.HandleFunc("POST /api/export", s.handleExport)

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

func handleReady(checker ReadinessChecker) http.HandlerFunc {
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

// handleCurrent returns the most recently stored (already corrected) reading.
func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	reading, ok, err := s.store.LatestReading(r.Context())
	if err != nil {
		s.serverError(w, "latest reading", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no readings stored yet"})
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24)
	limit := queryInt(r, "limit", 100)

	readings, err := s.store.ReadingsSince(r.Context(), time.Now().UTC().Add(-time.Duration(hours)*time.Hour), limit)
	if err != nil {
		s.serverError(w, "hourly readings", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(readings))
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	sinceDate := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	aggs, err := s.store.DailyAggregatesSince(r.Context(), sinceDate, days)
	if err != nil {
		s.serverError(w, "daily aggregates", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(aggs))
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24)
	limit := queryInt(r, "limit", 100)

	anomalies, err := s.store.AnomaliesSince(r.Context(), time.Now().UTC().Add(-time.Duration(hours)*time.Hour), limit)
	if err != nil {
		s.serverError(w, "anomalies", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(anomalies))
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24)
	limit := queryInt(r, "limit", 50)

	logs, err := s.store.LogsSince(r.Context(), time.Now().UTC().Add(-time.Duration(hours)*time.Hour), limit)
	if err != nil {
		s.serverError(w, "processing logs", err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(logs))
}

// handleCollect queues one manual collection run and acknowledges
// immediately. There is no synchronous success signal for the run itself.
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		location = s.defaultLocation
	}

	s.trigger.TriggerCollect(location)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message":   "data collection triggered",
		"location":  location,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// exportRequest is the POST /api/export body. Dates are optional RFC 3339.
type exportRequest struct {
	DataType  string     `json:"dataType"` // "hourly", "daily", or "anomalies"
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

const (
	exportReadingsLimit  = 1000
	exportAnomaliesLimit = 500
	exportDailyLimit     = 100
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	start := time.Time{}
	end := time.Now().UTC().Add(time.Hour)
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		end = req.EndDate.UTC()
	}

	var (
		csvData string
		err     error
	)
	switch req.DataType {
	case "hourly":
		var readings []domain.Reading
		readings, err = s.store.ReadingsBetween(r.Context(), start, end)
		if err == nil {
			if len(readings) > exportReadingsLimit {
				readings = readings[len(readings)-exportReadingsLimit:]
			}
			csvData, err = export.HourlyCSV(readings)
		}
	case "daily":
		var aggs []domain.DailyAggregate
		aggs, err = s.store.DailyAggregatesBetween(r.Context(),
			start.Format("2006-01-02"), end.Format("2006-01-02"), exportDailyLimit)
		if err == nil {
			csvData, err = export.DailyCSV(aggs)
		}
	case "anomalies":
		var anomalies []domain.AnomalyRecord
		anomalies, err = s.store.AnomaliesBetween(r.Context(), start, end, exportAnomaliesLimit)
		if err == nil {
			csvData, err = export.AnomaliesCSV(anomalies)
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unknown data type %q", req.DataType),
		})
		return
	}
	if err != nil {
		s.serverError(w, "export", err)
		return
	}

	filename := export.Filename(req.DataType, time.Now())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(csvData))
}

func (s *Server) serverError(w http.ResponseWriter, what string, err error) {
	s.logger.Error("request failed", "handler", what, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func queryInt(r *http.Request, key string, def int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// orEmpty turns a nil slice into an empty one so list endpoints always
// return a JSON array.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
