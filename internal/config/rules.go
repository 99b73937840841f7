package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/ghreport/internal/domain/model"
)

const day = 24 * time.Hour

// RulesFile is the YAML document describing watch rules, repository labels
// and the repositories to report on.
type RulesFile struct {
	WatchRules   map[string][]string `yaml:"watch_rules"`
	Labels       []LabelConfig       `yaml:"labels"`
	Repos        []RepoConfig        `yaml:"repos"`
	DynamicRepos DynamicReposConfig  `yaml:"dynamic_repos"`
}

// LabelConfig groups repositories that share watch rules, importance and
// summarizer context.
type LabelConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	WatchRules  []string `yaml:"watch_rules"`
	Importance  string   `yaml:"importance"`
	Context     string   `yaml:"context"`
}

// RepoConfig configures one repository. Optional fields override what the
// repository inherits from its labels.
type RepoConfig struct {
	Name               string   `yaml:"name"`
	Labels             []string `yaml:"labels"`
	WatchRules         []string `yaml:"watch_rules,omitempty"`
	ImportanceOverride string   `yaml:"importance_override,omitempty"`
	CustomContext      string   `yaml:"custom_context,omitempty"`
}

// DynamicReposConfig configures discovery of repositories the user has
// recently been involved in. Discovery is on unless enabled is false.
type DynamicReposConfig struct {
	Enabled                 *bool                  `yaml:"enabled"`
	AutoAddThresholdDays    int                    `yaml:"auto_add_threshold_days"`
	AutoRemoveThresholdDays int                    `yaml:"auto_remove_threshold_days"`
	MinActivityScore        *int                   `yaml:"min_activity_score"`
	ActivityWeights         *ActivityWeightsConfig `yaml:"activity_weights"`
	// Labels give discovered repositories their rules, importance and context.
	Labels []string `yaml:"labels"`
}

// ActivityWeightsConfig weighs activity when scoring discovered repositories.
type ActivityWeightsConfig struct {
	Commits  int `yaml:"commits"`
	PRs      int `yaml:"prs"`
	Issues   int `yaml:"issues"`
	Comments int `yaml:"comments"`
}

// LoadRules reads, expands and validates the rules file at path. Environment
// variables referenced as ${VAR} are substituted before parsing.
func LoadRules(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var rf RulesFile
	if err := yaml.Unmarshal([]byte(expanded), &rf); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	rf.applyDefaults()

	if err := rf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}

	return &rf, nil
}

func (rf *RulesFile) applyDefaults() {
	if len(rf.WatchRules) == 0 {
		rf.WatchRules = DefaultWatchRules()
	}
	for i := range rf.Labels {
		if rf.Labels[i].Importance == "" {
			rf.Labels[i].Importance = model.ImportanceMedium.String()
		}
	}

	defaults := model.DefaultDynamicRepoSettings()
	d := &rf.DynamicRepos
	if d.Enabled == nil {
		d.Enabled = &defaults.Enabled
	}
	if d.AutoAddThresholdDays == 0 {
		d.AutoAddThresholdDays = int(defaults.AddWindow / day)
	}
	if d.AutoRemoveThresholdDays == 0 {
		d.AutoRemoveThresholdDays = int(defaults.RemoveAfter / day)
	}
	if d.MinActivityScore == nil {
		d.MinActivityScore = &defaults.MinActivityScore
	}
	if d.ActivityWeights == nil {
		w := defaults.Weights
		d.ActivityWeights = &ActivityWeightsConfig{Commits: w.Commits, PRs: w.PRs, Issues: w.Issues, Comments: w.Comments}
	}
}

// DefaultWatchRules returns the rule set used when the rules file defines none.
func DefaultWatchRules() map[string][]string {
	return map[string][]string{
		model.RuleAPIChanges:      {"public API", "breaking change", "deprecation", "new feature"},
		model.RuleBreakingChanges: {"BREAKING", "migration", "major version"},
		model.RuleSecurityIssues:  {"security", "vulnerability", "CVE", "exploit"},
		model.RulePerformance:     {"performance", "regression", "benchmark", "slow"},
		model.RuleMentions:        {"@{username}"},
		model.RuleReviewRequests:  {"review requested", "PTAL", "feedback needed"},
		model.RuleAllActivity:     {},
	}
}

// Validate checks cross references between repositories, labels and rules.
// All problems are reported together.
func (rf *RulesFile) Validate() error {
	var errs []error

	labels := make(map[string]bool, len(rf.Labels))
	for _, l := range rf.Labels {
		if l.Name == "" {
			errs = append(errs, errors.New("label with empty name"))
			continue
		}
		if labels[l.Name] {
			errs = append(errs, fmt.Errorf("label %q defined more than once", l.Name))
		}
		labels[l.Name] = true

		if _, err := model.ParseImportance(l.Importance); err != nil {
			errs = append(errs, fmt.Errorf("label %q: %w", l.Name, err))
		}
		errs = append(errs, rf.checkRules("label "+l.Name, l.WatchRules)...)
	}

	seen := make(map[string]bool, len(rf.Repos))
	for _, r := range rf.Repos {
		owner, name, ok := strings.Cut(r.Name, "/")
		if !ok || owner == "" || name == "" {
			errs = append(errs, fmt.Errorf("repo %q: name must be in owner/repo format", r.Name))
			continue
		}
		if seen[r.Name] {
			errs = append(errs, fmt.Errorf("repo %q listed more than once", r.Name))
		}
		seen[r.Name] = true

		for _, l := range r.Labels {
			if !labels[l] {
				errs = append(errs, fmt.Errorf("repo %q: unknown label %q", r.Name, l))
			}
		}
		if r.ImportanceOverride != "" {
			if _, err := model.ParseImportance(r.ImportanceOverride); err != nil {
				errs = append(errs, fmt.Errorf("repo %q: %w", r.Name, err))
			}
		}
		errs = append(errs, rf.checkRules("repo "+r.Name, r.WatchRules)...)
	}

	errs = append(errs, rf.validateDynamicRepos(labels)...)

	return errors.Join(errs...)
}

func (rf *RulesFile) validateDynamicRepos(labels map[string]bool) []error {
	var errs []error
	d := rf.DynamicRepos

	if d.AutoAddThresholdDays < 0 || d.AutoRemoveThresholdDays < 0 {
		errs = append(errs, errors.New("dynamic_repos: threshold days must be positive"))
	} else if d.AutoAddThresholdDays > d.AutoRemoveThresholdDays {
		errs = append(errs, fmt.Errorf("dynamic_repos: auto_add_threshold_days (%d) exceeds auto_remove_threshold_days (%d)",
			d.AutoAddThresholdDays, d.AutoRemoveThresholdDays))
	}
	if d.MinActivityScore != nil && *d.MinActivityScore < 0 {
		errs = append(errs, errors.New("dynamic_repos: min_activity_score must not be negative"))
	}
	if w := d.ActivityWeights; w != nil && (w.Commits < 0 || w.PRs < 0 || w.Issues < 0 || w.Comments < 0) {
		errs = append(errs, errors.New("dynamic_repos: activity_weights must not be negative"))
	}
	for _, l := range d.Labels {
		if !labels[l] {
			errs = append(errs, fmt.Errorf("dynamic_repos: unknown label %q", l))
		}
	}

	return errs
}

func (rf *RulesFile) checkRules(owner string, names []string) []error {
	var errs []error
	for _, n := range names {
		if _, ok := rf.WatchRules[n]; !ok {
			errs = append(errs, fmt.Errorf("%s: unknown watch rule %q", owner, n))
		}
	}
	return errs
}

// WatchRuleSet returns a copy of the configured rules.
func (rf *RulesFile) WatchRuleSet() model.WatchRuleSet {
	set := make(model.WatchRuleSet, len(rf.WatchRules))
	for name, patterns := range rf.WatchRules {
		set[name] = append([]string{}, patterns...)
	}
	return set
}

// RepoNames returns the configured repositories in file order.
func (rf *RulesFile) RepoNames() []string {
	names := make([]string, 0, len(rf.Repos))
	for _, r := range rf.Repos {
		names = append(names, r.Name)
	}
	return names
}

// Profiles resolves each repository's labels and overrides into a RepoProfile.
//
// Active rules are the repository's own watch_rules when set, otherwise the
// union of its labels' rules in first-seen order. Importance is the override,
// otherwise the highest label importance, otherwise medium. Context is the
// custom context, otherwise the label contexts joined by newlines.
func (rf *RulesFile) Profiles() map[string]model.RepoProfile {
	profiles := make(map[string]model.RepoProfile, len(rf.Repos))
	for _, r := range rf.Repos {
		profile := rf.labelProfile(r.Labels)

		if r.WatchRules != nil {
			profile.ActiveRules = append([]string{}, r.WatchRules...)
		}
		if imp, err := model.ParseImportance(r.ImportanceOverride); r.ImportanceOverride != "" && err == nil {
			profile.Importance = imp
		}
		if r.CustomContext != "" {
			profile.Context = strings.TrimSpace(r.CustomContext)
		}

		profiles[r.Name] = profile
	}

	return profiles
}

// DiscoveredProfile is the profile applied to repositories found by
// discovery, built from the dynamic_repos labels.
func (rf *RulesFile) DiscoveredProfile() model.RepoProfile {
	return rf.labelProfile(rf.DynamicRepos.Labels)
}

// DynamicSettings returns the discovery settings with defaults applied.
func (rf *RulesFile) DynamicSettings() model.DynamicRepoSettings {
	settings := model.DefaultDynamicRepoSettings()
	d := rf.DynamicRepos

	if d.Enabled != nil {
		settings.Enabled = *d.Enabled
	}
	if d.AutoAddThresholdDays > 0 {
		settings.AddWindow = time.Duration(d.AutoAddThresholdDays) * day
	}
	if d.AutoRemoveThresholdDays > 0 {
		settings.RemoveAfter = time.Duration(d.AutoRemoveThresholdDays) * day
	}
	if d.MinActivityScore != nil {
		settings.MinActivityScore = *d.MinActivityScore
	}
	if w := d.ActivityWeights; w != nil {
		settings.Weights = model.ActivityWeights{Commits: w.Commits, PRs: w.PRs, Issues: w.Issues, Comments: w.Comments}
	}

	return settings
}

func (rf *RulesFile) labelProfile(names []string) model.RepoProfile {
	labels := make(map[string]LabelConfig, len(rf.Labels))
	for _, l := range rf.Labels {
		labels[l.Name] = l
	}

	profile := model.DefaultRepoProfile()

	var (
		contexts      []string
		hasImportance bool
		seenRules     = map[string]bool{}
	)
	for _, name := range names {
		l, ok := labels[name]
		if !ok {
			continue
		}
		for _, rule := range l.WatchRules {
			if !seenRules[rule] {
				seenRules[rule] = true
				profile.ActiveRules = append(profile.ActiveRules, rule)
			}
		}
		if imp, err := model.ParseImportance(l.Importance); err == nil {
			if !hasImportance || imp > profile.Importance {
				profile.Importance = imp
				hasImportance = true
			}
		}
		if c := strings.TrimSpace(l.Context); c != "" {
			contexts = append(contexts, c)
		}
	}
	profile.Context = strings.Join(contexts, "\n")

	return profile
}
