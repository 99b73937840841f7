package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
	"github.com/ericfisherdev/ghreport/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

const runColumns = `id, started_at, finished_at, since, repo_count, prioritized_count, action_item_count, fetch_errors, report_path`

// RunRepo is the SQLite implementation of the RunStore port interface.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// RecordRun inserts a completed run. Recording the same ID twice replaces the
// earlier row.
func (r *RunRepo) RecordRun(ctx context.Context, run model.Run) error {
	const query = `INSERT OR REPLACE INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		formatTime(run.Since),
		run.RepoCount,
		run.PrioritizedCount,
		run.ActionItemCount,
		run.FetchErrors,
		run.ReportPath,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}

	return nil
}

// LastRun returns the most recently started run, or driven.ErrNoRuns when the
// history is empty.
func (r *RunRepo) LastRun(ctx context.Context) (model.Run, error) {
	const query = `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT 1`

	run, err := scanRun(r.db.Reader.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, driven.ErrNoRuns
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("get last run: %w", err)
	}

	return run, nil
}

// ListRecent returns up to limit runs, newest first. A non-positive limit
// returns an empty slice.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.Run, error) {
	runs := []model.Run{}
	if limit <= 0 {
		return runs, nil
	}

	const query = `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (model.Run, error) {
	var run model.Run
	var started, finished, since string

	err := s.Scan(&run.ID, &started, &finished, &since,
		&run.RepoCount, &run.PrioritizedCount, &run.ActionItemCount, &run.FetchErrors, &run.ReportPath)
	if err != nil {
		return model.Run{}, err
	}

	if run.StartedAt, err = parseTime(started); err != nil {
		return model.Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return model.Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	if run.Since, err = parseTime(since); err != nil {
		return model.Run{}, fmt.Errorf("parse since: %w", err)
	}

	return run, nil
}

// storedTimeLayout sorts lexically in chronological order.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		storedTimeLayout,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
