package model

import "time"

// Issue represents a GitHub issue or pull request as delivered by the
// activity source. It is treated as immutable input by the analyzer.
type Issue struct {
	Number        int
	RepoFullName  string
	Title         string
	Body          string // Empty when the issue has no description.
	State         IssueState
	Author        string
	Labels        []string // Label names in GitHub order.
	CommentCount  int
	IsPullRequest bool
	URL           string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Kind returns "PR" for pull requests and "issue" otherwise, for use in
// human-readable text.
func (i Issue) Kind() string {
	if i.IsPullRequest {
		return "PR"
	}
	return "issue"
}

// HoursSinceUpdate returns the whole hours elapsed between the last update and now.
func (i Issue) HoursSinceUpdate(now time.Time) int {
	return int(now.Sub(i.UpdatedAt).Hours())
}

// RepoActivity groups the issues and pull requests seen for one repository
// during a lookback window.
type RepoActivity struct {
	NewIssues     []Issue
	UpdatedIssues []Issue
	NewPRs        []Issue
	UpdatedPRs    []Issue
}

// Candidates returns every item in the fixed analysis order: new issues,
// updated issues, new PRs, updated PRs.
func (a RepoActivity) Candidates() []Issue {
	all := make([]Issue, 0, a.Len())
	all = append(all, a.NewIssues...)
	all = append(all, a.UpdatedIssues...)
	all = append(all, a.NewPRs...)
	all = append(all, a.UpdatedPRs...)
	return all
}

// Len returns the total number of items across all buckets.
func (a RepoActivity) Len() int {
	return len(a.NewIssues) + len(a.UpdatedIssues) + len(a.NewPRs) + len(a.UpdatedPRs)
}
