package model

// RepoProfile holds per-repository analysis configuration.
type RepoProfile struct {
	Importance  Importance
	ActiveRules []string
	Context     string // Free-text note passed to the summarizer; may be empty.
}

// DefaultRepoProfile returns the profile applied to repositories that have no
// explicit configuration: medium importance, no active rules, no context.
func DefaultRepoProfile() RepoProfile {
	return RepoProfile{
		Importance:  ImportanceMedium,
		ActiveRules: []string{},
	}
}
