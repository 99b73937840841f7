package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
	"github.com/ericfisherdev/ghreport/internal/domain/port/driven"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// ReportProvider exposes the latest report and on-demand regeneration.
type ReportProvider interface {
	Latest() (*model.Report, bool)
	Refresh(ctx context.Context) (*model.Report, error)
}

// Pinger checks that a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	reports  ReportProvider
	runStore driven.RunStore
	db       Pinger
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. db may be nil,
// in which case the health check skips the database ping.
func NewHandler(
	reports ReportProvider,
	runStore driven.RunStore,
	db Pinger,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		reports:  reports,
		runStore: runStore,
		db:       db,
		logger:   logger,
	}
}

// RegisterRoutes registers the API routes on mux without middleware, so the
// composition root can share one mux with the web adapter.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/analysis", h.GetAnalysis)
	mux.HandleFunc("GET /api/v1/actions", h.ListActions)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("POST /api/v1/refresh", h.Refresh)
}

// GetAnalysis returns the prioritized items of the latest report. The optional
// repo query parameter restricts items to one repository.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")
	if repo != "" && !isValidRepoName(repo) {
		writeError(w, http.StatusBadRequest, "invalid repository name: expected owner/repo format")
		return
	}

	report, ok := h.reports.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no report generated yet")
		return
	}

	writeJSON(w, http.StatusOK, toAnalysisResponse(report, repo))
}

// ListActions returns the action items of the latest report, most urgent first.
func (h *Handler) ListActions(w http.ResponseWriter, _ *http.Request) {
	report, ok := h.reports.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no report generated yet")
		return
	}

	resp := make([]ActionItemResponse, 0, len(report.Result.ActionItems))
	for _, item := range report.Result.ActionItems {
		resp = append(resp, toActionItemResponse(item))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListRuns returns recorded runs, newest first. limit defaults to 20 and is
// capped at 100.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.runStore.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Refresh generates a report immediately and returns its run summary.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusServiceUnavailable, "refresh canceled")
			return
		}
		h.logger.Error("manual refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(report.Run))
}

// Health reports service liveness and, when configured, database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	if report, ok := h.reports.Latest(); ok {
		resp.LastRun = report.Run.StartedAt.UTC().Format(time.RFC3339)
	}

	status := http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Error("health check database ping failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	writeJSON(w, status, resp)
}

// isValidRepoName validates that name is in owner/repo format where each part
// contains only alphanumeric characters, hyphens, dots, or underscores.
func isValidRepoName(name string) bool {
	parts := strings.SplitN(name, "/", 3)
	if len(parts) != 2 {
		return false
	}

	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, ch := range part {
			if !isValidRepoChar(ch) {
				return false
			}
		}
	}

	return true
}

// isValidRepoChar returns true if the rune is allowed in a repository owner or name.
func isValidRepoChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '_'
}
