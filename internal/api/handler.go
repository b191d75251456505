package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpattn/salespipe/internal/domain"
	"github.com/rpattn/salespipe/internal/ingestion"
	"github.com/rpattn/salespipe/internal/metrics"
	"github.com/rpattn/salespipe/internal/pipeline"
	"github.com/rpattn/salespipe/internal/repository"
)

const maxUploadBytes = 32 << 20

// Handler exposes the pipeline as HTTP endpoints.
type Handler struct {
	runner  *pipeline.Runner
	runLogs repository.RunLogRepository
	metrics *metrics.Registry
	log     zerolog.Logger
}

// Option customizes the handler.
type Option func(*Handler)

// WithRunLogs enables the run-log query endpoint.
func WithRunLogs(repo repository.RunLogRepository) Option {
	return func(h *Handler) { h.runLogs = repo }
}

// WithMetrics wires pipeline counters into the run endpoint.
func WithMetrics(reg *metrics.Registry) Option {
	return func(h *Handler) { h.metrics = reg }
}

// NewHandler builds the HTTP handler around a pipeline runner.
func NewHandler(runner *pipeline.Runner, log zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{runner: runner, log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers all endpoints on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pipeline/run", h.handleRun)
	mux.HandleFunc("/api/runs/", h.handleRunLog)
	mux.HandleFunc("/healthz", handleHealth)
	return mux
}

// runResponse is the upload endpoint payload.
type runResponse struct {
	RunID      string                  `json:"run_id"`
	FileName   string                  `json:"file_name"`
	TotalRows  int                     `json:"total_rows"`
	Parsed     int                     `json:"parsed"`
	Skipped    int                     `json:"skipped"`
	Accepted   int                     `json:"accepted"`
	Rejected   []domain.RejectedRecord `json:"rejected"`
	Summary    domain.AnalysisSummary  `json:"summary"`
	DurationMS int64                   `json:"duration_ms"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	records, stats, err := ingestion.Parse(header.Filename, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.runner.Run(r.Context(), records)
	if err != nil {
		h.log.Error().Err(err).Str("file", header.Filename).Msg("pipeline run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.observe(result)

	writeJSON(w, http.StatusOK, runResponse{
		RunID:      result.RunID.String(),
		FileName:   header.Filename,
		TotalRows:  stats.TotalRows,
		Parsed:     stats.Parsed,
		Skipped:    stats.Skipped,
		Accepted:   len(result.Enriched),
		Rejected:   result.Rejected,
		Summary:    result.Summary,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// handleRunLog serves GET /api/runs/{id}/log with optional kind, limit and
// offset query parameters.
func (h *Handler) handleRunLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.runLogs == nil {
		http.Error(w, "run log storage not configured", http.StatusNotImplemented)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "log" {
		http.NotFound(w, r)
		return
	}
	runID, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid run id: %v", err), http.StatusBadRequest)
		return
	}

	kind := domain.RunLogKind(r.URL.Query().Get("kind"))
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	entries, err := h.runLogs.List(r.Context(), runID, kind, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID.String()).Msg("run log query failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID.String(),
		"entries": entries,
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) observe(result pipeline.Result) {
	if h.metrics == nil {
		return
	}
	h.metrics.RunsTotal.Inc()
	h.metrics.RunDuration.Observe(result.Duration.Seconds())
	h.metrics.RecordsTotal.Add(float64(len(result.Enriched) + len(result.Rejected)))
	for _, rej := range result.Rejected {
		h.metrics.RejectedTotal.WithLabelValues(string(rej.Reason)).Inc()
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
