package model

// Well-known rule names. Rule names are open string keys; these are the ones
// that carry dedicated weights, phrases, or heuristics.
const (
	RuleAllActivity     = "all_activity"
	RuleSecurityIssues  = "security_issues"
	RuleBreakingChanges = "breaking_changes"
	RuleAPIChanges      = "api_changes"
	RuleReviewRequests  = "review_requests"
	RulePerformance     = "performance"
	RuleMentions        = "mentions"
	RuleRepoPattern     = "repo_pattern"
)

// WatchRuleSet maps a rule name to its ordered trigger patterns.
type WatchRuleSet map[string][]string

// MatchedRule is the evidence that an issue (or repository) satisfied a rule.
// Confidence is informational only.
type MatchedRule struct {
	Rule        string  `json:"rule"`
	MatchedText string  `json:"matched_text"`
	Confidence  float64 `json:"confidence"`
}

// HasRule reports whether any match in the list is for the given rule name.
func HasRule(matches []MatchedRule, rule string) bool {
	for _, m := range matches {
		if m.Rule == rule {
			return true
		}
	}
	return false
}
