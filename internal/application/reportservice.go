// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
	"github.com/ericfisherdev/ghreport/internal/domain/port/driven"
)

// refreshRequest represents a manual report trigger.
type refreshRequest struct {
	done chan refreshResult
}

type refreshResult struct {
	report *model.Report
	err    error
}

// GenerateOptions adjusts a single report run.
type GenerateOptions struct {
	// Since fixes the start of the activity window. When zero the window
	// starts at the previous run, bounded by the lookback.
	Since time.Time
	// DryRun fetches and analyzes without writing the report, recording the
	// run or saving tracked repositories.
	DryRun bool
}

// ReportService orchestrates report generation: fetching activity for each
// configured and tracked repository, analyzing it, rendering and writing the
// report, and recording the run.
type ReportService struct {
	source    driven.ActivitySource
	runStore  driven.RunStore
	writer    driven.ReportWriter
	analyzer  *Analyzer
	tracker   *RepoTracker
	repos     []string
	lookback  time.Duration
	interval  time.Duration
	now       func() time.Time
	refreshCh chan refreshRequest
	logger    *slog.Logger

	mu     sync.RWMutex
	latest *model.Report
}

// NewReportService creates a new ReportService with all required dependencies.
func NewReportService(
	source driven.ActivitySource,
	runStore driven.RunStore,
	writer driven.ReportWriter,
	analyzer *Analyzer,
	repos []string,
	lookback time.Duration,
	interval time.Duration,
) *ReportService {
	return &ReportService{
		source:    source,
		runStore:  runStore,
		writer:    writer,
		analyzer:  analyzer,
		repos:     repos,
		lookback:  lookback,
		interval:  interval,
		now:       time.Now,
		refreshCh: make(chan refreshRequest),
		logger:    slog.Default(),
	}
}

// WithClock replaces the wall clock used to timestamp runs. Intended for tests.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// WithTracker adds repositories found by discovery to every run.
func (s *ReportService) WithTracker(t *RepoTracker) *ReportService {
	s.tracker = t
	return s
}

// Start runs an immediate report, then one per interval, and serves manual
// refresh requests. Start blocks until the context is canceled.
func (s *ReportService) Start(ctx context.Context) {
	if _, err := s.Generate(ctx, GenerateOptions{}); err != nil && ctx.Err() == nil {
		s.logger.Error("initial report failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("report service stopped")
			return
		case <-ticker.C:
			if _, err := s.Generate(ctx, GenerateOptions{}); err != nil && ctx.Err() == nil {
				s.logger.Error("scheduled report failed", "error", err)
			}
		case req := <-s.refreshCh:
			report, err := s.Generate(ctx, GenerateOptions{})
			req.done <- refreshResult{report: report, err: err}
		}
	}
}

// Refresh asks the running service loop for an immediate report and waits for
// it. It blocks until the report completes or the context is canceled.
func (s *ReportService) Refresh(ctx context.Context) (*model.Report, error) {
	done := make(chan refreshResult, 1)

	select {
	case s.refreshCh <- refreshRequest{done: done}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-done:
		return res.report, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Latest returns the most recent report generated by this process.
func (s *ReportService) Latest() (*model.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Generate produces one report. A repository whose fetch fails is logged and
// left out of the analysis; only writing the report or recording the run
// fails the whole operation.
func (s *ReportService) Generate(ctx context.Context, opts GenerateOptions) (*model.Report, error) {
	start := s.now()
	since := opts.Since
	if since.IsZero() {
		since = s.sinceFor(ctx, start)
	}

	repos := s.reposFor(ctx, start, opts.DryRun)

	activities := make(map[string]model.RepoActivity, len(repos))
	var fetchErrors int
	for _, repo := range repos {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		activity, err := s.source.FetchRepoActivity(ctx, repo, since)
		if err != nil {
			s.logger.Error("repo fetch failed", "repo", repo, "error", err)
			fetchErrors++
			continue
		}
		activities[repo] = activity
	}

	result := s.analyzer.Analyze(activities, start)
	markdown := RenderReport(result, start, since)

	run := model.Run{
		ID:               uuid.NewString(),
		StartedAt:        start,
		Since:            since,
		RepoCount:        len(activities),
		PrioritizedCount: len(result.PrioritizedIssues),
		ActionItemCount:  len(result.ActionItems),
		FetchErrors:      fetchErrors,
	}

	if opts.DryRun {
		run.FinishedAt = s.now()
		s.logger.Info("dry run complete",
			"repos", len(repos),
			"fetch_errors", fetchErrors,
			"prioritized", run.PrioritizedCount,
			"action_items", run.ActionItemCount,
		)
		return &model.Report{Run: run, Result: result, Markdown: markdown}, nil
	}

	path, err := s.writer.Write(ctx, start, markdown)
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	run.ReportPath = path
	run.FinishedAt = s.now()

	if err := s.runStore.RecordRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record run %s: %w", run.ID, err)
	}

	report := &model.Report{Run: run, Result: result, Markdown: markdown}

	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()

	s.logger.Info("report generated",
		"run_id", run.ID,
		"repos", len(repos),
		"fetch_errors", fetchErrors,
		"prioritized", run.PrioritizedCount,
		"action_items", run.ActionItemCount,
		"path", path,
		"duration", run.FinishedAt.Sub(start).Round(time.Millisecond),
	)

	return report, nil
}

// reposFor returns the configured repositories followed by any tracked ones
// not already configured. Discovery failures fall back to the stored set.
func (s *ReportService) reposFor(ctx context.Context, now time.Time, dryRun bool) []string {
	if s.tracker == nil {
		return s.repos
	}

	update, err := s.tracker.Reconcile(ctx, now)
	switch {
	case err != nil:
		s.logger.Warn("repository discovery failed, using stored set", "error", err)
	case !dryRun:
		if err := s.tracker.Save(ctx, update); err != nil {
			s.logger.Error("failed to save tracked repos", "error", err)
		}
	}

	repos := append([]string(nil), s.repos...)
	configured := make(map[string]bool, len(s.repos))
	for _, r := range s.repos {
		configured[r] = true
	}
	for _, t := range update.Tracked {
		if !configured[t.FullName] {
			repos = append(repos, t.FullName)
		}
	}
	return repos
}

// sinceFor returns the start of the lookback window: the previous run's start
// time, but never further back than the configured lookback. A previous run
// that missed repositories restarts from the full lookback.
func (s *ReportService) sinceFor(ctx context.Context, start time.Time) time.Time {
	floor := start.Add(-s.lookback)

	last, err := s.runStore.LastRun(ctx)
	if err != nil {
		if !errors.Is(err, driven.ErrNoRuns) {
			s.logger.Warn("failed to load last run, using full lookback", "error", err)
		}
		return floor
	}

	if last.FetchErrors > 0 {
		s.logger.Info("previous run missed repositories, using full lookback",
			"run_id", last.ID,
			"fetch_errors", last.FetchErrors,
		)
		return floor
	}

	if last.StartedAt.After(floor) {
		return last.StartedAt
	}
	return floor
}
