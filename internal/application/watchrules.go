package application

import (
	"sort"
	"strings"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

const (
	patternConfidence     = 1.0
	labelConfidence       = 0.9
	ruleRepoConfidence    = 0.8
	repoPatternConfidence = 0.7
)

// WatchRuleEngine matches issues and repositories against a WatchRuleSet.
// It holds no mutable state and is safe for concurrent use.
type WatchRuleEngine struct {
	rules model.WatchRuleSet
}

// NewWatchRuleEngine creates an engine over the given rule set.
func NewWatchRuleEngine(rules model.WatchRuleSet) *WatchRuleEngine {
	if rules == nil {
		rules = model.WatchRuleSet{}
	}
	return &WatchRuleEngine{rules: rules}
}

// MatchIssue returns the rules satisfied by issue. Each active rule yields at
// most one match (the first pattern found, in configured order). Label
// heuristics for security_issues and breaking_changes apply regardless of
// activeRules, but never duplicate a rule already matched.
func (e *WatchRuleEngine) MatchIssue(issue model.Issue, activeRules []string) []model.MatchedRule {
	var matches []model.MatchedRule
	searchable := strings.ToLower(searchableText(issue))

	for _, name := range activeRules {
		patterns, ok := e.rules[name]
		if !ok {
			continue
		}

		if len(patterns) == 0 && name == model.RuleAllActivity {
			matches = append(matches, model.MatchedRule{Rule: name, MatchedText: "all", Confidence: patternConfidence})
			continue
		}

		for _, pattern := range patterns {
			// Mention placeholders such as @{username} are not resolved yet.
			if isMentionPlaceholder(pattern) {
				continue
			}
			if strings.Contains(searchable, strings.ToLower(pattern)) {
				matches = append(matches, model.MatchedRule{Rule: name, MatchedText: pattern, Confidence: patternConfidence})
				break
			}
		}
	}

	for _, label := range issue.Labels {
		lower := strings.ToLower(label)

		if (strings.Contains(lower, "security") || strings.Contains(lower, "vulnerability")) &&
			!model.HasRule(matches, model.RuleSecurityIssues) {
			matches = append(matches, model.MatchedRule{Rule: model.RuleSecurityIssues, MatchedText: label, Confidence: labelConfidence})
		}

		if (strings.Contains(lower, "breaking") || strings.Contains(lower, "major")) &&
			!model.HasRule(matches, model.RuleBreakingChanges) {
			matches = append(matches, model.MatchedRule{Rule: model.RuleBreakingChanges, MatchedText: label, Confidence: labelConfidence})
		}
	}

	return matches
}

// MatchRepoName tags a repository by name. A pattern listed verbatim in a rule
// yields a match for that rule; a pattern contained in the repository name
// (case-insensitive) yields a repo_pattern match.
func (e *WatchRuleEngine) MatchRepoName(repoName string, patterns []string) []model.MatchedRule {
	var matches []model.MatchedRule
	repoLower := strings.ToLower(repoName)

	names := make([]string, 0, len(e.rules))
	for name := range e.rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, pattern := range patterns {
		for _, name := range names {
			for _, p := range e.rules[name] {
				if p == pattern {
					matches = append(matches, model.MatchedRule{Rule: name, MatchedText: pattern, Confidence: ruleRepoConfidence})
					break
				}
			}
		}

		if strings.Contains(repoLower, strings.ToLower(pattern)) {
			matches = append(matches, model.MatchedRule{Rule: model.RuleRepoPattern, MatchedText: pattern, Confidence: repoPatternConfidence})
		}
	}

	return matches
}

// searchableText joins title, body and label names with spaces.
func searchableText(issue model.Issue) string {
	parts := make([]string, 0, 2+len(issue.Labels))
	parts = append(parts, issue.Title)
	if issue.Body != "" {
		parts = append(parts, issue.Body)
	}
	parts = append(parts, issue.Labels...)
	return strings.Join(parts, " ")
}

func isMentionPlaceholder(pattern string) bool {
	return strings.HasPrefix(pattern, "@{") && strings.HasSuffix(pattern, "}")
}
