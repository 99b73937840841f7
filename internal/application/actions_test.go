package application_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ghreport/internal/application"
	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

func rules(names ...string) []model.MatchedRule {
	matched := make([]model.MatchedRule, 0, len(names))
	for _, n := range names {
		matched = append(matched, model.MatchedRule{Rule: n, MatchedText: n, Confidence: 1.0})
	}
	return matched
}

func TestDetermineUrgency(t *testing.T) {
	tests := []struct {
		name       string
		matched    []model.MatchedRule
		importance model.Importance
		total      int
		want       model.Urgency
	}{
		{"security match", rules(model.RuleSecurityIssues), model.ImportanceLow, 10, model.UrgencyCritical},
		{"critical repo above 80", nil, model.ImportanceCritical, 81, model.UrgencyCritical},
		{"critical repo at 80", nil, model.ImportanceCritical, 80, model.UrgencyHigh},
		{"breaking change", rules(model.RuleBreakingChanges), model.ImportanceLow, 10, model.UrgencyHigh},
		{"review request", rules(model.RuleReviewRequests), model.ImportanceLow, 10, model.UrgencyHigh},
		{"pull request with busy thread", nil, model.ImportanceMedium, 80, model.UrgencyHigh},
		{"above 60", nil, model.ImportanceLow, 61, model.UrgencyHigh},
		{"at 60", nil, model.ImportanceLow, 60, model.UrgencyMedium},
		{"above 30", nil, model.ImportanceLow, 31, model.UrgencyMedium},
		{"at 30", nil, model.ImportanceLow, 30, model.UrgencyLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := model.PrioritizedIssue{
				MatchedRules: tt.matched,
				Importance:   tt.importance,
				Score:        model.PriorityScore{Total: tt.total},
			}
			assert.Equal(t, tt.want, application.DetermineUrgency(pi))
		})
	}
}

func TestGenerateAction(t *testing.T) {
	base := model.Issue{Number: 12, Title: "Fix login", URL: "https://github.com/acme/api/issues/12"}
	pr := base
	pr.IsPullRequest = true
	busy := base
	busy.CommentCount = 11
	quiet := base
	quiet.CommentCount = 10
	bug := base
	bug.Labels = []string{"Bug"}

	suffix := " in acme/api: [Fix login](https://github.com/acme/api/issues/12)"

	tests := []struct {
		name    string
		issue   model.Issue
		matched []model.MatchedRule
		want    string
	}{
		{"security issue", base, rules(model.RuleSecurityIssues), "Review and address security issue #12"},
		{"security PR", pr, rules(model.RuleSecurityIssues), "Review and address security PR #12"},
		{"review request before breaking change", base, rules(model.RuleBreakingChanges, model.RuleReviewRequests), "Review PR #12"},
		{"breaking change", base, rules(model.RuleBreakingChanges), "Review breaking change in issue #12"},
		{"active discussion", busy, rules(model.RulePerformance), "Check active discussion on issue #12"},
		{"pull request", pr, rules(model.RulePerformance), "Review PR #12"},
		{"bug label", bug, rules(model.RuleAPIChanges), "Address issue #12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := application.GenerateAction(tt.issue, "acme/api", tt.matched)
			require.True(t, ok)
			assert.Equal(t, tt.want+suffix, got)
		})
	}

	t.Run("no action at ten comments", func(t *testing.T) {
		got, ok := application.GenerateAction(quiet, "acme/api", rules(model.RulePerformance))
		assert.False(t, ok)
		assert.Empty(t, got)
	})
}

func TestGenerateAction_TruncatesLongTitles(t *testing.T) {
	issue := model.Issue{
		Number:        3,
		Title:         strings.Repeat("a", 70),
		URL:           "https://github.com/acme/api/pull/3",
		IsPullRequest: true,
	}

	got, ok := application.GenerateAction(issue, "acme/api", nil)

	require.True(t, ok)
	assert.Equal(t, "Review PR #3 in acme/api: ["+strings.Repeat("a", 57)+"...](https://github.com/acme/api/pull/3)", got)
}

func TestGenerateAction_EscapesTitleMarkdown(t *testing.T) {
	issue := model.Issue{
		Number:        8,
		Title:         "Fix `parse` for [a]*b* <tag>",
		URL:           "https://github.com/acme/api/pull/8",
		IsPullRequest: true,
	}

	got, ok := application.GenerateAction(issue, "acme/api", nil)

	require.True(t, ok)
	assert.Equal(t, "Review PR #8 in acme/api: [Fix \\`parse\\` for \\[a\\]\\*b\\* \\<tag\\>](https://github.com/acme/api/pull/8)", got)
}

func TestGenerateReason(t *testing.T) {
	t.Run("rules then repository then discussion", func(t *testing.T) {
		pi := model.PrioritizedIssue{
			Issue:        model.Issue{CommentCount: 12},
			MatchedRules: rules(model.RuleSecurityIssues, "custom_rule", model.RuleBreakingChanges),
			Importance:   model.ImportanceCritical,
		}

		assert.Equal(t, "Security concern, Breaking change, Critical repository, 12 comments", application.GenerateReason(pi))
	})

	t.Run("high priority repository", func(t *testing.T) {
		pi := model.PrioritizedIssue{Importance: model.ImportanceHigh}
		assert.Equal(t, "High priority repository", application.GenerateReason(pi))
	})

	t.Run("fallback", func(t *testing.T) {
		pi := model.PrioritizedIssue{
			MatchedRules: rules(model.RuleAllActivity),
			Importance:   model.ImportanceMedium,
		}
		assert.Equal(t, "Requires attention", application.GenerateReason(pi))
	})
}

func TestExtractActionItems(t *testing.T) {
	var issues []model.PrioritizedIssue
	for n := 1; n <= 12; n++ {
		pi := model.PrioritizedIssue{
			Issue:        model.Issue{Number: n, Title: "pr", IsPullRequest: true},
			Repo:         "acme/api",
			MatchedRules: rules(model.RuleAllActivity),
			Importance:   model.ImportanceMedium,
		}
		if n == 5 || n == 9 {
			pi.MatchedRules = rules(model.RuleSecurityIssues)
		}
		issues = append(issues, pi)
	}
	// No action: plain issue without qualifying labels or comments.
	issues = append(issues, model.PrioritizedIssue{
		Issue:        model.Issue{Number: 99, Title: "note"},
		Repo:         "acme/api",
		MatchedRules: rules(model.RuleAllActivity),
	})

	items := application.ExtractActionItems(issues)

	require.Len(t, items, 10)

	var numbers []int
	for _, item := range items {
		numbers = append(numbers, item.Issue.Number)
		assert.Equal(t, "acme/api", item.Repo)
	}
	assert.Equal(t, []int{5, 9, 1, 2, 3, 4, 6, 7, 8, 10}, numbers)
	assert.Equal(t, model.UrgencyCritical, items[0].Urgency)
	assert.Equal(t, "Security concern", items[0].Reason)
	assert.Equal(t, model.UrgencyLow, items[2].Urgency)
}

func TestExtractActionItems_Empty(t *testing.T) {
	items := application.ExtractActionItems(nil)

	assert.NotNil(t, items)
	assert.Empty(t, items)
}
