package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

// RepoDiscoverer defines the driven port for finding repositories the
// authenticated user has recently been involved in.
type RepoDiscoverer interface {
	// DiscoverRepos returns one entry per repository with involvement
	// updated after since.
	DiscoverRepos(ctx context.Context, since time.Time) ([]model.DiscoveredRepo, error)
}

// TrackedRepoStore defines the driven port for persisting the tracked
// repository set.
type TrackedRepoStore interface {
	// ListTrackedRepos returns the tracked repositories ordered by name.
	ListTrackedRepos(ctx context.Context) ([]model.TrackedRepo, error)
	// ReplaceTrackedRepos atomically replaces the tracked set.
	ReplaceTrackedRepos(ctx context.Context, repos []model.TrackedRepo) error
}
