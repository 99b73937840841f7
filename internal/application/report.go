package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

const reportTimeLayout = "2006-01-02 15:04 MST"

// markdownEscaper backslash-escapes the characters that would let issue text
// open links, emphasis, code spans or HTML in the report.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
	"|", `\|`,
	"!", `\!`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// RenderReport renders an analysis result as a Markdown document. Prioritized
// items are grouped by repository in the order the repositories first appear
// in the ranking.
func RenderReport(result model.AnalysisResult, generatedAt, since time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# GitHub Activity Report - %s\n\n", generatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "_Generated %s, covering activity since %s._\n\n",
		generatedAt.UTC().Format(reportTimeLayout), since.UTC().Format(reportTimeLayout))

	b.WriteString("## Action Items\n\n")
	if len(result.ActionItems) == 0 {
		b.WriteString("_No action items._\n")
	}
	for i, item := range result.ActionItems {
		fmt.Fprintf(&b, "%d. **[%s]** %s\n", i+1, strings.ToUpper(item.Urgency.String()), item.Description)
		fmt.Fprintf(&b, "   - %s\n", item.Reason)
	}

	b.WriteString("\n## Prioritized Items\n\n")
	if len(result.PrioritizedIssues) == 0 {
		b.WriteString("_No items matched the configured watch rules._\n")
	}

	var repoOrder []string
	byRepo := make(map[string][]model.PrioritizedIssue)
	for _, pi := range result.PrioritizedIssues {
		if _, seen := byRepo[pi.Repo]; !seen {
			repoOrder = append(repoOrder, pi.Repo)
		}
		byRepo[pi.Repo] = append(byRepo[pi.Repo], pi)
	}

	for _, repo := range repoOrder {
		fmt.Fprintf(&b, "### %s (%s importance)\n\n", repo, result.RepoImportances[repo])
		for _, pi := range byRepo[repo] {
			writeIssueEntry(&b, pi)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Summary Context\n\n")
	b.WriteString(result.ContextPrompt)

	return b.String()
}

func writeIssueEntry(b *strings.Builder, pi model.PrioritizedIssue) {
	s := pi.Score
	fmt.Fprintf(b, "- [%s #%d: %s](%s) - score %d (%s priority)\n",
		pi.Issue.Kind(), pi.Issue.Number, escapeMarkdown(pi.Issue.Title), pi.Issue.URL, s.Total, ClassifyScore(s.Total))
	fmt.Fprintf(b, "  - breakdown: importance %d, recency %d, activity %d, rules %d, labels %d, pr bonus %d\n",
		s.Importance, s.Recency, s.Activity, s.RuleMatch, s.Label, s.PRBonus)

	rules := make([]string, 0, len(pi.MatchedRules))
	for _, m := range pi.MatchedRules {
		rules = append(rules, fmt.Sprintf("%s (%q)", m.Rule, m.MatchedText))
	}
	fmt.Fprintf(b, "  - matched: %s\n", strings.Join(rules, ", "))
}
