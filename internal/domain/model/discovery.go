package model

import "time"

// ActivityMetrics counts a user's recent activity in one repository.
type ActivityMetrics struct {
	Commits  int
	PRs      int
	Issues   int
	Comments int
}

// ActivityWeights are the per-unit weights applied to ActivityMetrics.
type ActivityWeights struct {
	Commits  int
	PRs      int
	Issues   int
	Comments int
}

// DefaultActivityWeights returns commits 4, PRs 3, issues 2, comments 1.
func DefaultActivityWeights() ActivityWeights {
	return ActivityWeights{Commits: 4, PRs: 3, Issues: 2, Comments: 1}
}

// DiscoveredRepo is a repository found through the user's recent involvement.
type DiscoveredRepo struct {
	FullName     string
	LastActivity time.Time
	Metrics      ActivityMetrics
}

// TrackedRepo is a repository kept on the report list by discovery.
type TrackedRepo struct {
	FullName      string
	LastSeen      time.Time
	ActivityScore int
	AutoTracked   bool
}

// DynamicRepoSettings controls repository discovery.
type DynamicRepoSettings struct {
	Enabled bool
	// AddWindow is how recent a repository's activity must be for it to be
	// added to the tracked set.
	AddWindow time.Duration
	// RemoveAfter drops auto-tracked repositories not seen for this long. It
	// is also the search window.
	RemoveAfter      time.Duration
	MinActivityScore int
	Weights          ActivityWeights
}

// DefaultDynamicRepoSettings returns discovery enabled with a 7 day add
// window, 30 day removal, minimum score 5 and the default weights.
func DefaultDynamicRepoSettings() DynamicRepoSettings {
	return DynamicRepoSettings{
		Enabled:          true,
		AddWindow:        7 * 24 * time.Hour,
		RemoveAfter:      30 * 24 * time.Hour,
		MinActivityScore: 5,
		Weights:          DefaultActivityWeights(),
	}
}

// RepoUpdate is the outcome of reconciling discovered repositories with the
// tracked set.
type RepoUpdate struct {
	Tracked []TrackedRepo
	Added   []string
	Removed []string
	Updated []string
}
