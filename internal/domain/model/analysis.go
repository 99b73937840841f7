package model

// PrioritizedIssue is an issue that matched at least one watch rule, together
// with its score and repository settings. Created once per analysis run.
type PrioritizedIssue struct {
	Issue        Issue
	Repo         string
	Score        PriorityScore
	MatchedRules []MatchedRule
	Importance   Importance
	Context      string
}

// ActionItem is a suggested next step for one prioritized issue.
type ActionItem struct {
	Description string
	Urgency     Urgency
	Reason      string
	Issue       Issue
	Repo        string
}

// AnalysisResult is the aggregated output of one analysis run.
type AnalysisResult struct {
	PrioritizedIssues  []PrioritizedIssue
	MatchedRulesByRepo map[string][]MatchedRule
	ContextPrompt      string
	ActionItems        []ActionItem
	RepoImportances    map[string]Importance
}
