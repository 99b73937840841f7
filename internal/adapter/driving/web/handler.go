// Package web implements the HTML report view driving adapter.
package web

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

// ReportProvider exposes the latest report and on-demand regeneration.
type ReportProvider interface {
	Latest() (*model.Report, bool)
	Refresh(ctx context.Context) (*model.Report, error)
}

// pageData is the view model for the layout template.
type pageData struct {
	Title            string
	CSRFToken        string
	HasReport        bool
	RunID            string
	RepoCount        int
	PrioritizedCount int
	ActionItemCount  int
	ReportHTML       template.HTML
}

// Handler is the web driving adapter that renders the latest report as HTML.
type Handler struct {
	reports ReportProvider
	layout  *template.Template
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. It fails only
// if the embedded templates do not parse.
func NewHandler(reports ReportProvider, logger *slog.Logger) (*Handler, error) {
	layout, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Handler{
		reports: reports,
		layout:  layout,
		logger:  logger,
	}, nil
}

// Dashboard renders the latest report inside the HTML layout.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:     "GitHub Activity Report",
		CSRFToken: csrfToken(w, r),
	}

	if report, ok := h.reports.Latest(); ok {
		data.HasReport = true
		data.Title = "GitHub Activity Report - " + report.Run.StartedAt.Format("2006-01-02")
		data.RunID = report.Run.ID
		data.RepoCount = report.Run.RepoCount
		data.PrioritizedCount = report.Run.PrioritizedCount
		data.ActionItemCount = report.Run.ActionItemCount
		data.ReportHTML = renderReportHTML(report.Markdown)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.layout.Execute(w, data); err != nil {
		h.logger.Error("failed to render dashboard", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// ReportMarkdown serves the latest report as raw Markdown.
func (h *Handler) ReportMarkdown(w http.ResponseWriter, _ *http.Request) {
	report, ok := h.reports.Latest()
	if !ok {
		http.Error(w, "no report generated yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(report.Markdown))
}

// Refresh regenerates the report from the dashboard form and redirects back.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	if _, err := h.reports.Refresh(r.Context()); err != nil {
		h.logger.Error("dashboard refresh failed", "error", err)
		http.Error(w, "refresh failed", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
