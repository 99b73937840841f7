package application

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

const (
	// maxActionItems bounds the action list returned by ExtractActionItems.
	maxActionItems = 10
	// activeDiscussionComments is the comment count above which a discussion
	// is considered active.
	activeDiscussionComments = 10
	// maxTitleLen bounds issue titles quoted in action descriptions.
	maxTitleLen = 60
)

// rulePhrases maps rule names to the phrase used when explaining a match.
var rulePhrases = map[string]string{
	model.RuleSecurityIssues:  "Security concern",
	model.RuleBreakingChanges: "Breaking change",
	model.RuleReviewRequests:  "Review requested",
	model.RuleAPIChanges:      "API change",
	model.RulePerformance:     "Performance impact",
}

// DetermineUrgency derives the actionability tier of a prioritized issue from
// its matched rules, repository importance and total score.
func DetermineUrgency(pi model.PrioritizedIssue) model.Urgency {
	switch {
	case model.HasRule(pi.MatchedRules, model.RuleSecurityIssues),
		pi.Importance == model.ImportanceCritical && pi.Score.Total > 80:
		return model.UrgencyCritical
	case model.HasRule(pi.MatchedRules, model.RuleBreakingChanges),
		model.HasRule(pi.MatchedRules, model.RuleReviewRequests),
		pi.Score.Total > 60:
		return model.UrgencyHigh
	case pi.Score.Total > 30:
		return model.UrgencyMedium
	default:
		return model.UrgencyLow
	}
}

// GenerateAction returns a suggested next step for issue, or false when the
// issue does not warrant one. The first applicable rule wins.
func GenerateAction(issue model.Issue, repo string, matched []model.MatchedRule) (string, bool) {
	var action string

	switch {
	case model.HasRule(matched, model.RuleSecurityIssues):
		action = fmt.Sprintf("Review and address security %s #%d", issue.Kind(), issue.Number)
	case model.HasRule(matched, model.RuleReviewRequests):
		action = fmt.Sprintf("Review PR #%d", issue.Number)
	case model.HasRule(matched, model.RuleBreakingChanges):
		action = fmt.Sprintf("Review breaking change in %s #%d", issue.Kind(), issue.Number)
	case issue.CommentCount > activeDiscussionComments:
		action = fmt.Sprintf("Check active discussion on %s #%d", issue.Kind(), issue.Number)
	case issue.IsPullRequest:
		action = fmt.Sprintf("Review PR #%d", issue.Number)
	case hasLabelContaining(issue.Labels, "bug", "urgent"):
		action = fmt.Sprintf("Address issue #%d", issue.Number)
	default:
		return "", false
	}

	return fmt.Sprintf("%s in %s: [%s](%s)", action, repo, escapeMarkdown(truncateTitle(issue.Title)), issue.URL), true
}

// GenerateReason explains why a prioritized issue deserves attention.
func GenerateReason(pi model.PrioritizedIssue) string {
	var reasons []string

	for _, m := range pi.MatchedRules {
		if phrase, ok := rulePhrases[m.Rule]; ok {
			reasons = append(reasons, phrase)
		}
	}

	switch pi.Importance {
	case model.ImportanceCritical:
		reasons = append(reasons, "Critical repository")
	case model.ImportanceHigh:
		reasons = append(reasons, "High priority repository")
	}

	if pi.Issue.CommentCount > activeDiscussionComments {
		reasons = append(reasons, fmt.Sprintf("%d comments", pi.Issue.CommentCount))
	}

	if len(reasons) == 0 {
		return "Requires attention"
	}
	return strings.Join(reasons, ", ")
}

// ExtractActionItems builds the ranked action list: one item per issue that
// has an action, stably ordered by urgency (highest first), at most ten.
func ExtractActionItems(issues []model.PrioritizedIssue) []model.ActionItem {
	items := make([]model.ActionItem, 0, len(issues))

	for _, pi := range issues {
		description, ok := GenerateAction(pi.Issue, pi.Repo, pi.MatchedRules)
		if !ok {
			continue
		}

		items = append(items, model.ActionItem{
			Description: description,
			Urgency:     DetermineUrgency(pi),
			Reason:      GenerateReason(pi),
			Issue:       pi.Issue,
			Repo:        pi.Repo,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Urgency > items[j].Urgency
	})

	if len(items) > maxActionItems {
		items = items[:maxActionItems]
	}

	return items
}

func hasLabelContaining(labels []string, substrings ...string) bool {
	for _, label := range labels {
		lower := strings.ToLower(label)
		for _, s := range substrings {
			if strings.Contains(lower, s) {
				return true
			}
		}
	}
	return false
}

// truncateTitle shortens long titles to maxTitleLen characters, ending in "...".
func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleLen {
		return title
	}
	return string(runes[:maxTitleLen-3]) + "..."
}
