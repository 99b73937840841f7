// Package github implements the ActivitySource and RepoDiscoverer ports using
// the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"github.com/sony/gobreaker/v2"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
	"github.com/ericfisherdev/ghreport/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ActivitySource = (*Client)(nil)

// ErrCircuitOpen is returned while the circuit breaker is rejecting calls
// after repeated GitHub failures.
var ErrCircuitOpen = errors.New("github circuit breaker open")

const (
	perPage = 100
	// maxPages bounds how many pages are read per repository and run.
	maxPages = 10

	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// issuePage is one page of the issues listing as seen through the breaker.
type issuePage struct {
	issues []*gh.Issue
	resp   *gh.Response
}

// Client implements the driven.ActivitySource port using the go-github library.
type Client struct {
	gh      *gh.Client
	breaker *gobreaker.CircuitBreaker[issuePage]
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client, PAT auth when token is set)
//
// Issue listing and search additionally run behind a circuit breaker.
func NewClient(token string) *Client {
	client := gh.NewClient(newTransportClient())
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{
		gh:      client,
		breaker: newBreaker(),
	}
}

// NewClientWithBaseURL creates a Client with the NewClient transport stack
// against another API root, such as https://ghe.example.com/api/v3/.
func NewClientWithBaseURL(baseURL, token string) (*Client, error) {
	return NewClientWithHTTPClient(newTransportClient(), baseURL, token)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// Tests use it to inject an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:      client,
		breaker: newBreaker(),
	}, nil
}

func newTransportClient() *http.Client {
	return github_ratelimit.NewClient(httpcache.NewMemoryCacheTransport())
}

func newBreaker() *gobreaker.CircuitBreaker[issuePage] {
	return gobreaker.NewCircuitBreaker[issuePage](gobreaker.Settings{
		Name:        "github-issues",
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		// Cancellation is the caller's doing, not a GitHub fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// FetchRepoActivity lists issues and pull requests updated since the given
// time and buckets them into new and updated items. An item counts as new when
// it was created at or after since. It handles pagination automatically and
// maps go-github types to domain model types.
func (c *Client) FetchRepoActivity(ctx context.Context, repoFullName string, since time.Time) (model.RepoActivity, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return model.RepoActivity{}, err
	}

	opts := &gh.IssueListByRepoOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "desc",
		Since:     since,
		ListOptions: gh.ListOptions{
			PerPage: perPage,
		},
	}

	var activity model.RepoActivity

	for pages := 1; ; pages++ {
		page, err := c.breaker.Execute(func() (issuePage, error) {
			issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
			return issuePage{issues: issues, resp: resp}, err
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return model.RepoActivity{}, fmt.Errorf("listing issues for %s: %w", repoFullName, ErrCircuitOpen)
		}
		if err != nil {
			return model.RepoActivity{}, fmt.Errorf("listing issues for %s (page %d): %w", repoFullName, opts.ListOptions.Page, err)
		}

		logRateLimit(page.resp, repoFullName, opts.ListOptions.Page, len(page.issues))

		for _, issue := range page.issues {
			addToActivity(&activity, mapIssue(issue, repoFullName), since)
		}

		if page.resp.NextPage == 0 {
			break
		}
		if pages >= maxPages {
			slog.Warn("issue listing truncated", "repo", repoFullName, "pages", pages)
			break
		}
		opts.ListOptions.Page = page.resp.NextPage
	}

	return activity, nil
}

func addToActivity(activity *model.RepoActivity, issue model.Issue, since time.Time) {
	isNew := !issue.CreatedAt.Before(since)

	switch {
	case issue.IsPullRequest && isNew:
		activity.NewPRs = append(activity.NewPRs, issue)
	case issue.IsPullRequest:
		activity.UpdatedPRs = append(activity.UpdatedPRs, issue)
	case isNew:
		activity.NewIssues = append(activity.NewIssues, issue)
	default:
		activity.UpdatedIssues = append(activity.UpdatedIssues, issue)
	}
}

func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapIssue converts a go-github Issue to a domain model Issue.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapIssue(issue *gh.Issue, repoFullName string) model.Issue {
	isPR := issue.IsPullRequest()

	state := model.IssueStateOpen
	switch {
	case isPR && !issue.GetPullRequestLinks().GetMergedAt().IsZero():
		state = model.IssueStateMerged
	case issue.GetState() == "closed":
		state = model.IssueStateClosed
	}

	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	return model.Issue{
		Number:        issue.GetNumber(),
		RepoFullName:  repoFullName,
		Title:         issue.GetTitle(),
		Body:          issue.GetBody(),
		State:         state,
		Author:        issue.GetUser().GetLogin(),
		Labels:        labels,
		CommentCount:  issue.GetComments(),
		IsPullRequest: isPR,
		URL:           issue.GetHTMLURL(),
		CreatedAt:     issue.GetCreatedAt().Time,
		UpdatedAt:     issue.GetUpdatedAt().Time,
	}
}

func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
