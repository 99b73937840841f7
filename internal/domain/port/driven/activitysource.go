// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

// ActivitySource defines the driven port for fetching repository activity.
type ActivitySource interface {
	// FetchRepoActivity returns the issues and pull requests of repoFullName
	// ("owner/repo") updated at or after since. Items created at or after since
	// are reported as new; the rest as updated.
	FetchRepoActivity(ctx context.Context, repoFullName string, since time.Time) (model.RepoActivity, error)
}
