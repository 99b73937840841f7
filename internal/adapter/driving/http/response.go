package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/ghreport/internal/application"
	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// RunResponse is the JSON representation of a recorded run.
type RunResponse struct {
	ID               string `json:"id"`
	StartedAt        string `json:"started_at"`
	FinishedAt       string `json:"finished_at"`
	Since            string `json:"since"`
	DurationMS       int64  `json:"duration_ms"`
	RepoCount        int    `json:"repo_count"`
	PrioritizedCount int    `json:"prioritized_count"`
	ActionItemCount  int    `json:"action_item_count"`
	ReportPath       string `json:"report_path"`
}

// PrioritizedIssueResponse is the JSON representation of a ranked issue or PR.
type PrioritizedIssueResponse struct {
	Repository   string              `json:"repository"`
	Number       int                 `json:"number"`
	Kind         string              `json:"kind"`
	Title        string              `json:"title"`
	State        string              `json:"state"`
	Author       string              `json:"author"`
	URL          string              `json:"url"`
	Labels       []string            `json:"labels"`
	Comments     int                 `json:"comments"`
	UpdatedAt    string              `json:"updated_at"`
	Importance   string              `json:"importance"`
	Priority     string              `json:"priority"`
	Score        model.PriorityScore `json:"score"`
	MatchedRules []model.MatchedRule `json:"matched_rules"`
}

// ActionItemResponse is the JSON representation of a suggested next step.
type ActionItemResponse struct {
	Description string `json:"description"`
	Urgency     string `json:"urgency"`
	Reason      string `json:"reason"`
	Repository  string `json:"repository"`
	Number      int    `json:"number"`
	URL         string `json:"url"`
}

// AnalysisResponse is the JSON representation of the latest analysis.
type AnalysisResponse struct {
	Run                RunResponse                    `json:"run"`
	PrioritizedIssues  []PrioritizedIssueResponse     `json:"prioritized_issues"`
	MatchedRulesByRepo map[string][]model.MatchedRule `json:"matched_rules_by_repo"`
	RepoImportances    map[string]model.Importance    `json:"repo_importances"`
	ContextPrompt      string                         `json:"context_prompt"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Database string `json:"database,omitempty"`
	LastRun  string `json:"last_run,omitempty"`
}

func toRunResponse(run model.Run) RunResponse {
	return RunResponse{
		ID:               run.ID,
		StartedAt:        run.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:       run.FinishedAt.UTC().Format(time.RFC3339),
		Since:            run.Since.UTC().Format(time.RFC3339),
		DurationMS:       run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		RepoCount:        run.RepoCount,
		PrioritizedCount: run.PrioritizedCount,
		ActionItemCount:  run.ActionItemCount,
		ReportPath:       run.ReportPath,
	}
}

func toPrioritizedIssueResponse(pi model.PrioritizedIssue) PrioritizedIssueResponse {
	labels := pi.Issue.Labels
	if labels == nil {
		labels = []string{}
	}

	return PrioritizedIssueResponse{
		Repository:   pi.Repo,
		Number:       pi.Issue.Number,
		Kind:         pi.Issue.Kind(),
		Title:        pi.Issue.Title,
		State:        string(pi.Issue.State),
		Author:       pi.Issue.Author,
		URL:          pi.Issue.URL,
		Labels:       labels,
		Comments:     pi.Issue.CommentCount,
		UpdatedAt:    pi.Issue.UpdatedAt.UTC().Format(time.RFC3339),
		Importance:   pi.Importance.String(),
		Priority:     application.ClassifyScore(pi.Score.Total).String(),
		Score:        pi.Score,
		MatchedRules: pi.MatchedRules,
	}
}

func toActionItemResponse(item model.ActionItem) ActionItemResponse {
	return ActionItemResponse{
		Description: item.Description,
		Urgency:     item.Urgency.String(),
		Reason:      item.Reason,
		Repository:  item.Repo,
		Number:      item.Issue.Number,
		URL:         item.Issue.URL,
	}
}

// toAnalysisResponse converts a report to its JSON representation. A non-empty
// repo keeps only that repository's items and rule matches.
func toAnalysisResponse(report *model.Report, repo string) AnalysisResponse {
	result := report.Result

	issues := make([]PrioritizedIssueResponse, 0, len(result.PrioritizedIssues))
	for _, pi := range result.PrioritizedIssues {
		if repo != "" && pi.Repo != repo {
			continue
		}
		issues = append(issues, toPrioritizedIssueResponse(pi))
	}

	matched := result.MatchedRulesByRepo
	if repo != "" {
		matched = map[string][]model.MatchedRule{}
		if m, ok := result.MatchedRulesByRepo[repo]; ok {
			matched[repo] = m
		}
	}

	return AnalysisResponse{
		Run:                toRunResponse(report.Run),
		PrioritizedIssues:  issues,
		MatchedRulesByRepo: matched,
		RepoImportances:    result.RepoImportances,
		ContextPrompt:      result.ContextPrompt,
	}
}
