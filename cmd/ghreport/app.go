package main

import (
	"errors"
	"log/slog"

	githubadapter "github.com/ericfisherdev/ghreport/internal/adapter/driven/github"
	"github.com/ericfisherdev/ghreport/internal/adapter/driven/reportfile"
	sqliteadapter "github.com/ericfisherdev/ghreport/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/ghreport/internal/application"
	"github.com/ericfisherdev/ghreport/internal/config"
	"github.com/ericfisherdev/ghreport/internal/domain/port/driven"
)

// app holds the wired adapters and services shared by report and serve.
type app struct {
	db      *sqliteadapter.DB
	runs    *sqliteadapter.RunRepo
	service *application.ReportService
}

// newApp loads the rules file, opens and migrates the database, and wires the
// report service. A nil writer stores reports in cfg.ReportDir. The caller
// must call close.
func newApp(cfg *config.Config, logger *slog.Logger, writer driven.ReportWriter) (*app, error) {
	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, err
	}

	repos := rules.RepoNames()
	dynamic := rules.DynamicSettings()
	if dynamic.Enabled && !cfg.HasGitHubToken() {
		logger.Warn("repository discovery needs a github token, disabling it")
		dynamic.Enabled = false
	}
	if len(repos) == 0 && !dynamic.Enabled {
		return nil, errors.New("no repositories to report on: list repos in " + cfg.RulesPath + " or enable dynamic_repos")
	}

	logger.Info("rules loaded",
		"path", cfg.RulesPath,
		"repos", len(repos),
		"watch_rules", len(rules.WatchRules),
		"discovery", dynamic.Enabled,
	)

	ghClient, err := newGitHubClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	logger.Info("database opened", "path", db.Path())

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	if version, dirty, err := sqliteadapter.SchemaVersion(db.Writer); err == nil {
		logger.Info("migrations complete", "schema_version", version, "dirty", dirty)
	}

	if writer == nil {
		writer = reportfile.NewWriter(cfg.ReportDir)
	}

	runs := sqliteadapter.NewRunRepo(db)
	analyzer := application.NewAnalyzer(rules.WatchRuleSet(), rules.Profiles()).
		WithDefaultProfile(rules.DiscoveredProfile())

	service := application.NewReportService(
		ghClient,
		runs,
		writer,
		analyzer,
		repos,
		cfg.Lookback,
		cfg.PollInterval,
	)
	if dynamic.Enabled {
		service.WithTracker(application.NewRepoTracker(ghClient, sqliteadapter.NewTrackedRepoRepo(db), dynamic))
	}

	return &app{db: db, runs: runs, service: service}, nil
}

func newGitHubClient(cfg *config.Config, logger *slog.Logger) (*githubadapter.Client, error) {
	if !cfg.HasGitHubToken() {
		logger.Warn("no github token configured, using unauthenticated rate limit")
	}
	if cfg.GitHubAPIURL == "" {
		return githubadapter.NewClient(cfg.GitHubToken), nil
	}
	logger.Info("using github api", "url", cfg.GitHubAPIURL)
	return githubadapter.NewClientWithBaseURL(cfg.GitHubAPIURL, cfg.GitHubToken)
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
