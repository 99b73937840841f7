package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ghreport/internal/application"
	"github.com/ericfisherdev/ghreport/internal/domain/model"
	"github.com/ericfisherdev/ghreport/internal/domain/port/driven"
)

// --- Mock implementations ---

type fetchCall struct {
	Repo  string
	Since time.Time
}

type mockActivitySource struct {
	mu         sync.Mutex
	calls      []fetchCall
	activities map[string]model.RepoActivity
	errs       map[string]error
}

func (m *mockActivitySource) FetchRepoActivity(_ context.Context, repo string, since time.Time) (model.RepoActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fetchCall{Repo: repo, Since: since})
	if err := m.errs[repo]; err != nil {
		return model.RepoActivity{}, err
	}
	return m.activities[repo], nil
}

type mockRunStore struct {
	mu       sync.Mutex
	last     *model.Run
	lastErr  error
	recorded []model.Run
}

func (m *mockRunStore) RecordRun(_ context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, run)
	return nil
}

func (m *mockRunStore) LastRun(_ context.Context) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastErr != nil {
		return model.Run{}, m.lastErr
	}
	if m.last == nil {
		return model.Run{}, driven.ErrNoRuns
	}
	return *m.last, nil
}

func (m *mockRunStore) ListRecent(_ context.Context, _ int) ([]model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recorded, nil
}

type mockReportWriter struct {
	mu        sync.Mutex
	documents []string
	err       error
}

func (m *mockReportWriter) Write(_ context.Context, generatedAt time.Time, markdown string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.documents = append(m.documents, markdown)
	return "reports/" + generatedAt.Format("2006-01-02") + " - Github Report.md", nil
}

const testLookback = 7 * 24 * time.Hour

func newTestReportService(source *mockActivitySource, runs *mockRunStore, writer *mockReportWriter, repos ...string) *application.ReportService {
	analyzer := application.NewAnalyzer(
		model.WatchRuleSet{model.RuleSecurityIssues: {"security"}},
		map[string]model.RepoProfile{
			"acme/api": {Importance: model.ImportanceHigh, ActiveRules: []string{model.RuleSecurityIssues}},
		},
	)
	svc := application.NewReportService(source, runs, writer, analyzer, repos, testLookback, time.Hour)
	return svc.WithClock(func() time.Time { return testNow })
}

func TestReportService_Generate(t *testing.T) {
	source := &mockActivitySource{
		activities: map[string]model.RepoActivity{
			"acme/api": {NewIssues: []model.Issue{{
				Number:    42,
				Title:     "Security vulnerability in auth module",
				URL:       "https://github.com/acme/api/issues/42",
				UpdatedAt: testNow,
			}}},
		},
		errs: map[string]error{"acme/broken": errors.New("boom")},
	}
	runs := &mockRunStore{}
	writer := &mockReportWriter{}
	svc := newTestReportService(source, runs, writer, "acme/api", "acme/broken")

	report, err := svc.Generate(context.Background(), application.GenerateOptions{})
	require.NoError(t, err)

	require.Len(t, source.calls, 2)
	for _, c := range source.calls {
		assert.Equal(t, testNow.Add(-testLookback), c.Since, "no previous run uses the full lookback")
	}

	assert.Equal(t, 1, report.Run.RepoCount, "failed repo is skipped")
	assert.Equal(t, 1, report.Run.FetchErrors)
	assert.Equal(t, 1, report.Run.PrioritizedCount)
	assert.Equal(t, 1, report.Run.ActionItemCount)
	assert.Equal(t, "reports/2026-10-17 - Github Report.md", report.Run.ReportPath)
	assert.NotEmpty(t, report.Run.ID)
	assert.Contains(t, report.Markdown, "Review and address security issue #42")

	require.Len(t, writer.documents, 1)
	assert.Equal(t, report.Markdown, writer.documents[0])
	require.Len(t, runs.recorded, 1)
	assert.Equal(t, report.Run, runs.recorded[0])

	latest, ok := svc.Latest()
	require.True(t, ok)
	assert.Same(t, report, latest)
}

func TestReportService_Since(t *testing.T) {
	tests := []struct {
		name    string
		last    *model.Run
		lastErr error
		want    time.Time
	}{
		{"recent run", &model.Run{StartedAt: testNow.Add(-2 * time.Hour)}, nil, testNow.Add(-2 * time.Hour)},
		{"run older than lookback", &model.Run{StartedAt: testNow.Add(-30 * 24 * time.Hour)}, nil, testNow.Add(-testLookback)},
		{"store failure", nil, errors.New("db locked"), testNow.Add(-testLookback)},
		{"previous run missed repos", &model.Run{StartedAt: testNow.Add(-2 * time.Hour), FetchErrors: 1}, nil, testNow.Add(-testLookback)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &mockActivitySource{}
			runs := &mockRunStore{last: tt.last, lastErr: tt.lastErr}
			svc := newTestReportService(source, runs, &mockReportWriter{}, "acme/api")

			report, err := svc.Generate(context.Background(), application.GenerateOptions{})
			require.NoError(t, err)

			require.Len(t, source.calls, 1)
			assert.Equal(t, tt.want, source.calls[0].Since)
			assert.Equal(t, tt.want, report.Run.Since)
		})
	}
}

func TestReportService_WriteFailure(t *testing.T) {
	runs := &mockRunStore{}
	writer := &mockReportWriter{err: errors.New("disk full")}
	svc := newTestReportService(&mockActivitySource{}, runs, writer, "acme/api")

	_, err := svc.Generate(context.Background(), application.GenerateOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, runs.recorded)
	_, ok := svc.Latest()
	assert.False(t, ok)
}

func TestReportService_Refresh(t *testing.T) {
	runs := &mockRunStore{}
	writer := &mockReportWriter{}
	svc := newTestReportService(&mockActivitySource{}, runs, writer, "acme/api")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	refreshCtx, refreshCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer refreshCancel()

	report, err := svc.Refresh(refreshCtx)
	require.NoError(t, err)
	require.NotNil(t, report)

	cancel()
	<-done

	runs.mu.Lock()
	defer runs.mu.Unlock()
	assert.Len(t, runs.recorded, 2, "initial report plus refresh")
}

func TestReportService_RefreshCanceled(t *testing.T) {
	svc := newTestReportService(&mockActivitySource{}, &mockRunStore{}, &mockReportWriter{}, "acme/api")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Refresh(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestReportService_ExplicitSince(t *testing.T) {
	source := &mockActivitySource{}
	runs := &mockRunStore{last: &model.Run{StartedAt: testNow.Add(-time.Hour)}}
	svc := newTestReportService(source, runs, &mockReportWriter{}, "acme/api")

	want := testNow.Add(-3 * 24 * time.Hour)
	report, err := svc.Generate(context.Background(), application.GenerateOptions{Since: want})
	require.NoError(t, err)

	require.Len(t, source.calls, 1)
	assert.Equal(t, want, source.calls[0].Since)
	assert.Equal(t, want, report.Run.Since)
}

func TestReportService_DryRun(t *testing.T) {
	source := &mockActivitySource{
		activities: map[string]model.RepoActivity{
			"acme/api": {NewIssues: []model.Issue{{
				Number:    42,
				Title:     "Security vulnerability in auth module",
				UpdatedAt: testNow,
			}}},
		},
	}
	runs := &mockRunStore{}
	writer := &mockReportWriter{}
	svc := newTestReportService(source, runs, writer, "acme/api")

	report, err := svc.Generate(context.Background(), application.GenerateOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Run.PrioritizedCount)
	assert.Empty(t, report.Run.ReportPath)
	assert.Contains(t, report.Markdown, "Review and address security issue #42")
	assert.Empty(t, writer.documents, "dry run writes nothing")
	assert.Empty(t, runs.recorded, "dry run records nothing")
	_, ok := svc.Latest()
	assert.False(t, ok)
}

type mockDiscoverer struct {
	repos []model.DiscoveredRepo
	err   error
	since time.Time
}

func (m *mockDiscoverer) DiscoverRepos(_ context.Context, since time.Time) ([]model.DiscoveredRepo, error) {
	m.since = since
	return m.repos, m.err
}

type mockTrackedStore struct {
	mu      sync.Mutex
	tracked []model.TrackedRepo
	saves   int
}

func (m *mockTrackedStore) ListTrackedRepos(_ context.Context) ([]model.TrackedRepo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.TrackedRepo(nil), m.tracked...), nil
}

func (m *mockTrackedStore) ReplaceTrackedRepos(_ context.Context, repos []model.TrackedRepo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked = repos
	m.saves++
	return nil
}

func fetchedRepos(source *mockActivitySource) []string {
	source.mu.Lock()
	defer source.mu.Unlock()
	repos := make([]string, 0, len(source.calls))
	for _, c := range source.calls {
		repos = append(repos, c.Repo)
	}
	return repos
}

func TestReportService_TrackedRepos(t *testing.T) {
	discoverer := &mockDiscoverer{repos: []model.DiscoveredRepo{
		{FullName: "acme/api", LastActivity: testNow.Add(-time.Hour), Metrics: model.ActivityMetrics{Issues: 5}},
		{FullName: "acme/web", LastActivity: testNow.Add(-time.Hour), Metrics: model.ActivityMetrics{PRs: 2}},
		{FullName: "acme/quiet", LastActivity: testNow.Add(-time.Hour), Metrics: model.ActivityMetrics{Comments: 1}},
	}}
	store := &mockTrackedStore{}
	tracker := application.NewRepoTracker(discoverer, store, model.DefaultDynamicRepoSettings())

	source := &mockActivitySource{}
	svc := newTestReportService(source, &mockRunStore{}, &mockReportWriter{}, "acme/api").WithTracker(tracker)

	_, err := svc.Generate(context.Background(), application.GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/api", "acme/web"}, fetchedRepos(source),
		"configured repos first, below-threshold repos left out, no duplicates")
	assert.Equal(t, testNow.Add(-30*24*time.Hour), discoverer.since)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.saves)
	require.Len(t, store.tracked, 2)
	assert.Equal(t, "acme/api", store.tracked[0].FullName)
	assert.Equal(t, "acme/web", store.tracked[1].FullName)
}

func TestReportService_TrackedRepos_DryRunDoesNotSave(t *testing.T) {
	discoverer := &mockDiscoverer{repos: []model.DiscoveredRepo{
		{FullName: "acme/web", LastActivity: testNow, Metrics: model.ActivityMetrics{PRs: 2}},
	}}
	store := &mockTrackedStore{}
	tracker := application.NewRepoTracker(discoverer, store, model.DefaultDynamicRepoSettings())

	source := &mockActivitySource{}
	svc := newTestReportService(source, &mockRunStore{}, &mockReportWriter{}, "acme/api").WithTracker(tracker)

	_, err := svc.Generate(context.Background(), application.GenerateOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/api", "acme/web"}, fetchedRepos(source))
	assert.Zero(t, store.saves)
}

func TestReportService_TrackedRepos_DiscoveryFailureUsesStoredSet(t *testing.T) {
	discoverer := &mockDiscoverer{err: errors.New("401 Requires authentication")}
	store := &mockTrackedStore{tracked: []model.TrackedRepo{
		{FullName: "acme/old", LastSeen: testNow.Add(-24 * time.Hour), AutoTracked: true},
	}}
	tracker := application.NewRepoTracker(discoverer, store, model.DefaultDynamicRepoSettings())

	source := &mockActivitySource{}
	svc := newTestReportService(source, &mockRunStore{}, &mockReportWriter{}, "acme/api").WithTracker(tracker)

	_, err := svc.Generate(context.Background(), application.GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/api", "acme/old"}, fetchedRepos(source))
	assert.Zero(t, store.saves, "a failed discovery leaves the stored set alone")
}
