package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

const sampleRules = `
watch_rules:
  security_issues: ["security", "CVE"]
  breaking_changes: ["BREAKING"]
  performance: ["slow"]
  all_activity: []

labels:
  - name: core
    description: Production services
    watch_rules: [security_issues, breaking_changes]
    importance: high
    context: Customer facing.
  - name: perf
    description: Latency sensitive
    watch_rules: [performance, security_issues]
    importance: critical
    context: p99 matters.
  - name: hobby
    description: Side projects
    watch_rules: [all_activity]
    importance: low
    context: ""

repos:
  - name: acme/api
    labels: [core, perf]
  - name: acme/site
    labels: [hobby]
    importance_override: medium
    custom_context: Marketing site owned by ${TEAM_NAME}.
  - name: acme/tools
    labels: [core]
    watch_rules: [performance]
  - name: acme/bare
    labels: []
`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".gh-report.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRules_Profiles(t *testing.T) {
	t.Setenv("TEAM_NAME", "growth")

	rf, err := LoadRules(writeRules(t, sampleRules))
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/api", "acme/site", "acme/tools", "acme/bare"}, rf.RepoNames())

	profiles := rf.Profiles()
	require.Len(t, profiles, 4)

	t.Run("label union in first-seen order", func(t *testing.T) {
		p := profiles["acme/api"]
		assert.Equal(t, []string{"security_issues", "breaking_changes", "performance"}, p.ActiveRules)
		assert.Equal(t, model.ImportanceCritical, p.Importance)
		assert.Equal(t, "Customer facing.\np99 matters.", p.Context)
	})

	t.Run("overrides", func(t *testing.T) {
		p := profiles["acme/site"]
		assert.Equal(t, []string{"all_activity"}, p.ActiveRules)
		assert.Equal(t, model.ImportanceMedium, p.Importance)
		assert.Equal(t, "Marketing site owned by growth.", p.Context)
	})

	t.Run("explicit watch rules replace label rules", func(t *testing.T) {
		p := profiles["acme/tools"]
		assert.Equal(t, []string{"performance"}, p.ActiveRules)
		assert.Equal(t, model.ImportanceHigh, p.Importance)
	})

	t.Run("no labels", func(t *testing.T) {
		assert.Equal(t, model.DefaultRepoProfile(), profiles["acme/bare"])
	})
}

func TestLoadRules_DefaultWatchRules(t *testing.T) {
	rf, err := LoadRules(writeRules(t, "repos:\n  - name: acme/api\n    labels: []\n    watch_rules: [review_requests]\n"))
	require.NoError(t, err)

	set := rf.WatchRuleSet()
	assert.Equal(t, []string{"security", "vulnerability", "CVE", "exploit"}, set[model.RuleSecurityIssues])
	assert.Contains(t, set, model.RuleAllActivity)
	assert.Empty(t, set[model.RuleAllActivity])
	assert.Equal(t, []string{"review_requests"}, rf.Profiles()["acme/api"].ActiveRules)
}

func TestLoadRules_LabelImportanceDefaultsToMedium(t *testing.T) {
	rf, err := LoadRules(writeRules(t, `
labels:
  - name: misc
    watch_rules: []
repos:
  - name: acme/api
    labels: [misc]
`))
	require.NoError(t, err)

	assert.Equal(t, model.ImportanceMedium, rf.Profiles()["acme/api"].Importance)
}

func TestLoadRules_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown label",
			content: "repos:\n  - name: acme/api\n    labels: [missing]\n",
			wantErr: `unknown label "missing"`,
		},
		{
			name:    "unknown rule",
			content: "watch_rules:\n  performance: [slow]\nrepos:\n  - name: acme/api\n    labels: []\n    watch_rules: [nope]\n",
			wantErr: `unknown watch rule "nope"`,
		},
		{
			name:    "bad importance",
			content: "labels:\n  - name: core\n    importance: urgent\n",
			wantErr: `invalid importance "urgent"`,
		},
		{
			name:    "bad override",
			content: "repos:\n  - name: acme/api\n    labels: []\n    importance_override: max\n",
			wantErr: `invalid importance "max"`,
		},
		{
			name:    "empty repo name",
			content: "repos:\n  - name: \"\"\n    labels: []\n",
			wantErr: "owner/repo format",
		},
		{
			name:    "add threshold beyond remove threshold",
			content: "dynamic_repos:\n  auto_add_threshold_days: 40\n  auto_remove_threshold_days: 30\n",
			wantErr: "exceeds auto_remove_threshold_days",
		},
		{
			name:    "negative weight",
			content: "dynamic_repos:\n  activity_weights:\n    prs: -1\n",
			wantErr: "activity_weights must not be negative",
		},
		{
			name:    "unknown discovery label",
			content: "dynamic_repos:\n  labels: [ghost]\n",
			wantErr: `dynamic_repos: unknown label "ghost"`,
		},
		{
			name:    "duplicate repo",
			content: "repos:\n  - name: acme/api\n    labels: []\n  - name: acme/api\n    labels: []\n",
			wantErr: "listed more than once",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf, err := LoadRules(writeRules(t, tt.content))

			require.Error(t, err)
			assert.Nil(t, rf)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRules_MalformedYAML(t *testing.T) {
	_, err := LoadRules(writeRules(t, "repos: [\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse rules file")
}

func TestLoadRules_DynamicReposDefaults(t *testing.T) {
	rf, err := LoadRules(writeRules(t, "repos: []\n"))
	require.NoError(t, err)

	assert.Equal(t, model.DefaultDynamicRepoSettings(), rf.DynamicSettings())
	assert.Equal(t, model.DefaultRepoProfile(), rf.DiscoveredProfile())
}

func TestLoadRules_DynamicRepos(t *testing.T) {
	content := sampleRules + `
dynamic_repos:
  enabled: false
  auto_add_threshold_days: 3
  auto_remove_threshold_days: 14
  min_activity_score: 0
  activity_weights:
    commits: 1
    prs: 5
    issues: 1
    comments: 0
  labels: [core]
`
	t.Setenv("TEAM_NAME", "growth")
	rf, err := LoadRules(writeRules(t, content))
	require.NoError(t, err)

	settings := rf.DynamicSettings()
	assert.False(t, settings.Enabled)
	assert.Equal(t, 3*24*time.Hour, settings.AddWindow)
	assert.Equal(t, 14*24*time.Hour, settings.RemoveAfter)
	assert.Equal(t, 0, settings.MinActivityScore, "explicit zero is kept")
	assert.Equal(t, model.ActivityWeights{Commits: 1, PRs: 5, Issues: 1, Comments: 0}, settings.Weights)

	profile := rf.DiscoveredProfile()
	assert.Equal(t, []string{"security_issues", "breaking_changes"}, profile.ActiveRules)
	assert.Equal(t, model.ImportanceHigh, profile.Importance)
	assert.Equal(t, "Customer facing.", profile.Context)
}
