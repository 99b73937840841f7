package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
	"github.com/ericfisherdev/ghreport/internal/domain/port/driven"
)

// CalculateActivityScore weighs a repository's activity counts.
func CalculateActivityScore(m model.ActivityMetrics, w model.ActivityWeights) int {
	return m.Commits*w.Commits + m.PRs*w.PRs + m.Issues*w.Issues + m.Comments*w.Comments
}

// ReconcileTrackedRepos merges freshly discovered repositories into the
// tracked set.
//
// A repository already tracked gets its last-seen time and score refreshed. A
// new one is added only when its last activity falls within the add window and
// its score reaches the minimum. Auto-tracked repositories not seen within the
// removal window are dropped. The returned tracked set is sorted by name.
func ReconcileTrackedRepos(
	tracked []model.TrackedRepo,
	discovered []model.DiscoveredRepo,
	settings model.DynamicRepoSettings,
	now time.Time,
) model.RepoUpdate {
	byName := make(map[string]model.TrackedRepo, len(tracked))
	for _, t := range tracked {
		byName[t.FullName] = t
	}

	sorted := append([]model.DiscoveredRepo(nil), discovered...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FullName < sorted[j].FullName })

	update := model.RepoUpdate{
		Added:   []string{},
		Removed: []string{},
		Updated: []string{},
	}

	for _, d := range sorted {
		score := CalculateActivityScore(d.Metrics, settings.Weights)

		if existing, ok := byName[d.FullName]; ok {
			if d.LastActivity.After(existing.LastSeen) {
				existing.LastSeen = d.LastActivity
			}
			existing.ActivityScore = score
			byName[d.FullName] = existing
			update.Updated = append(update.Updated, d.FullName)
			continue
		}

		if now.Sub(d.LastActivity) > settings.AddWindow || score < settings.MinActivityScore {
			continue
		}
		byName[d.FullName] = model.TrackedRepo{
			FullName:      d.FullName,
			LastSeen:      d.LastActivity,
			ActivityScore: score,
			AutoTracked:   true,
		}
		update.Added = append(update.Added, d.FullName)
	}

	update.Tracked = make([]model.TrackedRepo, 0, len(byName))
	for name, t := range byName {
		if t.AutoTracked && now.Sub(t.LastSeen) > settings.RemoveAfter {
			update.Removed = append(update.Removed, name)
			continue
		}
		update.Tracked = append(update.Tracked, t)
	}
	sort.Slice(update.Tracked, func(i, j int) bool { return update.Tracked[i].FullName < update.Tracked[j].FullName })
	sort.Strings(update.Removed)

	return update
}

// RepoTracker keeps the set of discovered repositories up to date.
type RepoTracker struct {
	discoverer driven.RepoDiscoverer
	store      driven.TrackedRepoStore
	settings   model.DynamicRepoSettings
	logger     *slog.Logger
}

// NewRepoTracker creates a RepoTracker.
func NewRepoTracker(
	discoverer driven.RepoDiscoverer,
	store driven.TrackedRepoStore,
	settings model.DynamicRepoSettings,
) *RepoTracker {
	return &RepoTracker{
		discoverer: discoverer,
		store:      store,
		settings:   settings,
		logger:     slog.Default(),
	}
}

// Reconcile discovers active repositories and computes the new tracked set
// without saving it. When discovery fails, the returned update carries the
// stored set unchanged along with the error.
func (t *RepoTracker) Reconcile(ctx context.Context, now time.Time) (model.RepoUpdate, error) {
	stored, err := t.store.ListTrackedRepos(ctx)
	if err != nil {
		return model.RepoUpdate{}, fmt.Errorf("load tracked repos: %w", err)
	}

	discovered, err := t.discoverer.DiscoverRepos(ctx, now.Add(-t.settings.RemoveAfter))
	if err != nil {
		return model.RepoUpdate{Tracked: stored}, fmt.Errorf("discover repos: %w", err)
	}

	update := ReconcileTrackedRepos(stored, discovered, t.settings, now)

	t.logger.Info("tracked repositories reconciled",
		"discovered", len(discovered),
		"added", len(update.Added),
		"removed", len(update.Removed),
		"tracked", len(update.Tracked),
	)

	return update, nil
}

// Save persists the tracked set of update.
func (t *RepoTracker) Save(ctx context.Context, update model.RepoUpdate) error {
	if err := t.store.ReplaceTrackedRepos(ctx, update.Tracked); err != nil {
		return fmt.Errorf("save tracked repos: %w", err)
	}
	return nil
}
