package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

// ErrNoRuns is returned by RunStore.LastRun when no run has been recorded yet.
var ErrNoRuns = errors.New("no runs recorded")

// RunStore defines the driven port for persisting report run state.
type RunStore interface {
	// RecordRun stores a completed run.
	RecordRun(ctx context.Context, run model.Run) error
	// LastRun returns the most recently started run, or ErrNoRuns.
	LastRun(ctx context.Context) (model.Run, error)
	// ListRecent returns up to limit runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.Run, error)
}
