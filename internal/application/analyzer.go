package application

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

const summarizationGuidelines = `## Summarization Guidelines

When summarizing GitHub activity:
1. Prioritize security issues, breaking changes, and critical bugs first
2. Highlight pull requests that need review
3. Group related items together for clarity
4. For each high-priority item, explain why it matters
5. Suggest specific actions when appropriate
6. Keep summaries concise but informative
`

// Analyzer ranks repository activity against watch rules and repository
// profiles. The rule set and profiles are injected at construction and never
// mutated, so a single Analyzer may serve concurrent Analyze calls.
type Analyzer struct {
	engine   *WatchRuleEngine
	profiles map[string]model.RepoProfile
	fallback model.RepoProfile
	workers  int
	logger   *slog.Logger
}

// repoAnalysis is the per-repository output of the map phase.
type repoAnalysis struct {
	repo       string
	importance model.Importance
	context    string
	issues     []model.PrioritizedIssue
	matches    []model.MatchedRule
}

// NewAnalyzer creates an Analyzer. Repositories missing from profiles use
// model.DefaultRepoProfile unless WithDefaultProfile overrides it.
func NewAnalyzer(rules model.WatchRuleSet, profiles map[string]model.RepoProfile) *Analyzer {
	if profiles == nil {
		profiles = map[string]model.RepoProfile{}
	}
	return &Analyzer{
		engine:   NewWatchRuleEngine(rules),
		profiles: profiles,
		fallback: model.DefaultRepoProfile(),
		workers:  runtime.GOMAXPROCS(0),
		logger:   slog.Default(),
	}
}

// WithDefaultProfile sets the profile used for repositories missing from the
// profile table, such as those found by discovery.
func (a *Analyzer) WithDefaultProfile(p model.RepoProfile) *Analyzer {
	a.fallback = p
	return a
}

// ProfileFor returns the configured profile for repo, or the default profile.
func (a *Analyzer) ProfileFor(repo string) model.RepoProfile {
	if p, ok := a.profiles[repo]; ok {
		return p
	}
	return a.fallback
}

// Analyze matches, scores and ranks every item in activities. Repositories are
// analyzed in parallel and merged in repository-name order, so identical
// inputs always yield identical results. now anchors the recency component.
func (a *Analyzer) Analyze(activities map[string]model.RepoActivity, now time.Time) model.AnalysisResult {
	repos := make([]string, 0, len(activities))
	for repo := range activities {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	results := make([]repoAnalysis, len(repos))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, repo := range repos {
		g.Go(func() error {
			results[i] = a.analyzeRepo(repo, activities[repo], now)
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors.

	result := model.AnalysisResult{
		PrioritizedIssues:  []model.PrioritizedIssue{},
		MatchedRulesByRepo: make(map[string][]model.MatchedRule),
		RepoImportances:    make(map[string]model.Importance, len(repos)),
	}
	contexts := make(map[string]string)

	for _, ra := range results {
		result.RepoImportances[ra.repo] = ra.importance
		if ra.context != "" {
			contexts[ra.repo] = ra.context
		}
		if len(ra.matches) > 0 {
			result.MatchedRulesByRepo[ra.repo] = ra.matches
		}
		result.PrioritizedIssues = append(result.PrioritizedIssues, ra.issues...)
	}

	sort.SliceStable(result.PrioritizedIssues, func(i, j int) bool {
		return result.PrioritizedIssues[i].Score.Total > result.PrioritizedIssues[j].Score.Total
	})

	result.ContextPrompt = BuildContextPrompt(result.RepoImportances, contexts)
	result.ActionItems = ExtractActionItems(result.PrioritizedIssues)

	a.logger.Debug("analysis complete",
		"repos", len(repos),
		"prioritized", len(result.PrioritizedIssues),
		"action_items", len(result.ActionItems),
	)

	return result
}

// analyzeRepo runs matching and scoring for one repository. Items that match
// no rule are dropped.
func (a *Analyzer) analyzeRepo(repo string, activity model.RepoActivity, now time.Time) repoAnalysis {
	profile := a.ProfileFor(repo)
	ra := repoAnalysis{
		repo:       repo,
		importance: profile.Importance,
		context:    profile.Context,
	}

	for _, issue := range activity.Candidates() {
		matched := a.engine.MatchIssue(issue, profile.ActiveRules)
		if len(matched) == 0 {
			continue
		}

		ra.issues = append(ra.issues, model.PrioritizedIssue{
			Issue:        issue,
			Repo:         repo,
			Score:        CalculatePriorityScore(issue, profile.Importance, matched, issue.IsPullRequest, now),
			MatchedRules: matched,
			Importance:   profile.Importance,
			Context:      profile.Context,
		})
		ra.matches = append(ra.matches, matched...)
	}

	return ra
}

// BuildContextPrompt produces the instruction text handed to the summarizer:
// fixed guidelines, the analyzed repositories grouped by importance tier
// (Critical first), and any configured per-repository context notes.
func BuildContextPrompt(importances map[string]model.Importance, contexts map[string]string) string {
	var b strings.Builder
	b.WriteString(summarizationGuidelines)

	if len(importances) > 0 {
		byTier := make(map[model.Importance][]string)
		for repo, imp := range importances {
			byTier[imp] = append(byTier[imp], repo)
		}

		b.WriteString("\n## Repository Importance\n\n")
		for _, tier := range model.Importances {
			repos := byTier[tier]
			if len(repos) == 0 {
				continue
			}
			sort.Strings(repos)
			fmt.Fprintf(&b, "- %s: %s\n", tierTitle(tier), strings.Join(repos, ", "))
		}
	}

	if len(contexts) > 0 {
		repos := make([]string, 0, len(contexts))
		for repo := range contexts {
			repos = append(repos, repo)
		}
		sort.Strings(repos)

		b.WriteString("\n## Repository Context\n\n")
		for _, repo := range repos {
			fmt.Fprintf(&b, "- %s: %s\n", repo, strings.TrimSpace(contexts[repo]))
		}
	}

	return b.String()
}

func tierTitle(imp model.Importance) string {
	s := imp.String()
	return strings.ToUpper(s[:1]) + s[1:]
}
