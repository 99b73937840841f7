package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/sony/gobreaker/v2"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
	"github.com/ericfisherdev/ghreport/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoDiscoverer = (*Client)(nil)

// involvementQualifiers are the search qualifiers that tie an issue or pull
// request to the user.
var involvementQualifiers = []string{"involves", "author", "mentions", "assignee", "reviewed-by"}

// maxSearchPages bounds each involvement query. The search API allows 30
// requests per minute.
const maxSearchPages = 2

// commitsPerPR estimates commit volume, which the search API does not expose.
const commitsPerPR = 3

// DiscoverRepos finds repositories where the authenticated user was involved in
// an issue or pull request updated after since. Every involvement query is
// run; an item seen by several queries counts once.
func (c *Client) DiscoverRepos(ctx context.Context, since time.Time) ([]model.DiscoveredRepo, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("get authenticated user: %w", err)
	}
	login := user.GetLogin()

	slog.Info("discovering repositories", "user", login, "since", since.Format(time.DateOnly))

	seen := make(map[int64]bool)
	repos := make(map[string]*model.DiscoveredRepo)

	for _, qualifier := range involvementQualifiers {
		query := fmt.Sprintf("%s:%s updated:>%s", qualifier, login, since.UTC().Format(time.DateOnly))

		issues, err := c.searchIssues(ctx, query)
		if err != nil {
			return nil, err
		}

		for _, issue := range issues {
			if seen[issue.GetID()] {
				continue
			}
			seen[issue.GetID()] = true

			name, ok := repoFromURL(issue.GetRepositoryURL())
			if !ok {
				continue
			}
			addDiscovered(repos, name, issue)
		}
	}

	result := make([]model.DiscoveredRepo, 0, len(repos))
	for _, r := range repos {
		r.Metrics.Commits = r.Metrics.PRs * commitsPerPR
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullName < result[j].FullName })

	slog.Info("repository discovery complete", "user", login, "repos", len(result), "items", len(seen))

	return result, nil
}

func (c *Client) searchIssues(ctx context.Context, query string) ([]*gh.Issue, error) {
	opts := &gh.SearchOptions{
		Sort:        "updated",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	var all []*gh.Issue
	for pages := 1; ; pages++ {
		page, err := c.breaker.Execute(func() (issuePage, error) {
			result, resp, err := c.gh.Search.Issues(ctx, query, opts)
			if err != nil {
				return issuePage{resp: resp}, err
			}
			return issuePage{issues: result.Issues, resp: resp}, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("searching %q: %w", query, ErrCircuitOpen)
		}
		if err != nil {
			return nil, fmt.Errorf("searching %q (page %d): %w", query, opts.Page, err)
		}

		logRateLimit(page.resp, "search/issues", opts.Page, len(page.issues))
		all = append(all, page.issues...)

		if page.resp.NextPage == 0 || pages >= maxSearchPages {
			break
		}
		opts.Page = page.resp.NextPage
	}

	return all, nil
}

func addDiscovered(repos map[string]*model.DiscoveredRepo, name string, issue *gh.Issue) {
	r, ok := repos[name]
	if !ok {
		r = &model.DiscoveredRepo{FullName: name}
		repos[name] = r
	}

	if issue.IsPullRequest() {
		r.Metrics.PRs++
	} else {
		r.Metrics.Issues++
	}
	r.Metrics.Comments += issue.GetComments()

	if updated := issue.GetUpdatedAt().Time; updated.After(r.LastActivity) {
		r.LastActivity = updated
	}
}

// repoFromURL extracts "owner/repo" from an API repository URL such as
// https://api.github.com/repos/owner/repo.
func repoFromURL(raw string) (string, bool) {
	_, path, ok := strings.Cut(raw, "/repos/")
	if !ok {
		return "", false
	}
	if _, _, err := splitRepo(path); err != nil || strings.Count(path, "/") != 1 {
		return "", false
	}
	return path, true
}
