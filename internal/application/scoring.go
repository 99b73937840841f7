package application

import (
	"strings"
	"time"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

const (
	// prBonus is added to the total of every pull request.
	prBonus = 10
	// maxScoredComments caps the comment count used for the activity component.
	maxScoredComments = 10
	// defaultRuleWeight applies to rule names without a dedicated weight.
	defaultRuleWeight = 5
)

// ruleWeights maps well-known rule names to their rule-match points.
var ruleWeights = map[string]int{
	model.RuleSecurityIssues:  30,
	model.RuleBreakingChanges: 25,
	model.RuleAPIChanges:      20,
	model.RuleReviewRequests:  15,
	model.RulePerformance:     15,
	model.RuleMentions:        10,
}

// CalculatePriorityScore computes the additive priority breakdown for issue.
// now is supplied by the caller so results are reproducible.
func CalculatePriorityScore(
	issue model.Issue,
	importance model.Importance,
	matched []model.MatchedRule,
	isPullRequest bool,
	now time.Time,
) model.PriorityScore {
	score := model.PriorityScore{
		Importance: importanceScore(importance),
		Recency:    recencyScore(max(1, issue.HoursSinceUpdate(now))),
		Activity:   min(issue.CommentCount, maxScoredComments) * 2,
		RuleMatch:  ruleMatchScore(matched),
		Label:      labelScore(issue.Labels),
	}

	if isPullRequest {
		score.PRBonus = prBonus
	}
	score.Total = score.ComponentSum() + score.PRBonus

	return score
}

// RuleWeight returns the rule-match points for a rule name, falling back to
// the default weight for names without a dedicated entry.
func RuleWeight(rule string) int {
	if w, ok := ruleWeights[rule]; ok {
		return w
	}
	return defaultRuleWeight
}

// ClassifyScore buckets a total score into a coarse priority. It is separate
// from DetermineUrgency and may disagree with it for the same issue.
func ClassifyScore(total int) model.Priority {
	switch {
	case total <= 30:
		return model.PriorityLow
	case total <= 60:
		return model.PriorityMedium
	case total <= 90:
		return model.PriorityHigh
	default:
		return model.PriorityCritical
	}
}

func importanceScore(importance model.Importance) int {
	switch importance {
	case model.ImportanceCritical:
		return 40
	case model.ImportanceHigh:
		return 30
	case model.ImportanceMedium:
		return 20
	default:
		return 10
	}
}

// recencyScore buckets the hours since the last update.
func recencyScore(ageHours int) int {
	switch {
	case ageHours <= 6:
		return 30
	case ageHours <= 24:
		return 25
	case ageHours <= 72:
		return 20
	case ageHours <= 168:
		return 15
	case ageHours <= 336:
		return 10
	default:
		return 5
	}
}

func ruleMatchScore(matched []model.MatchedRule) int {
	best := 0
	for _, m := range matched {
		best = max(best, RuleWeight(m.Rule))
	}
	return best
}

func labelScore(labels []string) int {
	best := 0
	for _, label := range labels {
		best = max(best, labelWeight(strings.ToLower(label)))
	}
	return best
}

func labelWeight(label string) int {
	switch {
	case strings.Contains(label, "security"), strings.Contains(label, "critical"):
		return 20
	case strings.Contains(label, "bug"), strings.Contains(label, "urgent"):
		return 15
	case strings.Contains(label, "feature"), strings.Contains(label, "enhancement"):
		return 10
	case strings.Contains(label, "documentation"), strings.Contains(label, "test"):
		return 5
	default:
		return 2
	}
}
