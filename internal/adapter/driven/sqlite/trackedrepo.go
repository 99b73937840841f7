package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
	"github.com/ericfisherdev/ghreport/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TrackedRepoStore = (*TrackedRepoRepo)(nil)

// TrackedRepoRepo is the SQLite implementation of the TrackedRepoStore port.
type TrackedRepoRepo struct {
	db *DB
}

// NewTrackedRepoRepo creates a new TrackedRepoRepo backed by the given DB.
func NewTrackedRepoRepo(db *DB) *TrackedRepoRepo {
	return &TrackedRepoRepo{db: db}
}

// ListTrackedRepos returns every tracked repository ordered by name.
func (r *TrackedRepoRepo) ListTrackedRepos(ctx context.Context) ([]model.TrackedRepo, error) {
	const query = `SELECT full_name, last_seen, activity_score, auto_tracked FROM tracked_repos ORDER BY full_name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tracked repos: %w", err)
	}
	defer rows.Close()

	repos := []model.TrackedRepo{}
	for rows.Next() {
		var (
			repo     model.TrackedRepo
			lastSeen string
		)
		if err := rows.Scan(&repo.FullName, &lastSeen, &repo.ActivityScore, &repo.AutoTracked); err != nil {
			return nil, fmt.Errorf("scan tracked repo: %w", err)
		}
		if repo.LastSeen, err = parseTime(lastSeen); err != nil {
			return nil, fmt.Errorf("parse last_seen for %s: %w", repo.FullName, err)
		}
		repos = append(repos, repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked repos: %w", err)
	}

	return repos, nil
}

// ReplaceTrackedRepos swaps the tracked set for repos in one transaction.
func (r *TrackedRepoRepo) ReplaceTrackedRepos(ctx context.Context, repos []model.TrackedRepo) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM tracked_repos`); err != nil {
		return fmt.Errorf("clear tracked repos: %w", err)
	}

	const insert = `INSERT INTO tracked_repos (full_name, last_seen, activity_score, auto_tracked) VALUES (?, ?, ?, ?)`

	for _, repo := range repos {
		_, err := tx.ExecContext(ctx, insert,
			repo.FullName,
			formatTime(repo.LastSeen),
			repo.ActivityScore,
			repo.AutoTracked,
		)
		if err != nil {
			return fmt.Errorf("insert tracked repo %s: %w", repo.FullName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tracked repos: %w", err)
	}

	return nil
}
