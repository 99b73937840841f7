// Package config loads application configuration from environment variables
// and the YAML rules file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken  string
	GitHubAPIURL string // empty means api.github.com
	RulesPath    string
	DBPath       string
	ListenAddr   string
	PollInterval time.Duration
	Lookback     time.Duration
	ReportDir    string
	LogLevel     slog.Level
}

// HasGitHubToken reports whether a GitHub token was configured. Without one the
// GitHub client runs unauthenticated at the anonymous rate limit.
func (c *Config) HasGitHubToken() bool {
	return c.GitHubToken != ""
}

// Load reads configuration from a .env file (if present) and environment
// variables and returns a validated Config.
// GHREPORT_GITHUB_API_URL points the client at a GitHub Enterprise API.
// Optional variables with defaults: GHREPORT_CONFIG (.gh-report.yaml),
// GHREPORT_DB_PATH (ghreport.db), GHREPORT_LISTEN_ADDR (127.0.0.1:8080),
// GHREPORT_POLL_INTERVAL (1h), GHREPORT_LOOKBACK_DAYS (7),
// GHREPORT_REPORT_DIR (reports), GHREPORT_LOG_LEVEL (info).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		GitHubToken:  os.Getenv("GHREPORT_GITHUB_TOKEN"),
		GitHubAPIURL: os.Getenv("GHREPORT_GITHUB_API_URL"),
		RulesPath:    envOr("GHREPORT_CONFIG", ".gh-report.yaml"),
		DBPath:       envOr("GHREPORT_DB_PATH", "ghreport.db"),
		ListenAddr:   envOr("GHREPORT_LISTEN_ADDR", "127.0.0.1:8080"),
		PollInterval: time.Hour,
		Lookback:     7 * 24 * time.Hour,
		ReportDir:    envOr("GHREPORT_REPORT_DIR", "reports"),
		LogLevel:     slog.LevelInfo,
	}

	if v, ok := os.LookupEnv("GHREPORT_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("GHREPORT_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("GHREPORT_POLL_INTERVAL must be positive, got %q", v)
		}
		cfg.PollInterval = parsed
	}

	if v, ok := os.LookupEnv("GHREPORT_LOOKBACK_DAYS"); ok {
		days, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("GHREPORT_LOOKBACK_DAYS has invalid value %q: %w", v, err)
		}
		if days <= 0 {
			return nil, fmt.Errorf("GHREPORT_LOOKBACK_DAYS must be positive, got %d", days)
		}
		cfg.Lookback = time.Duration(days) * 24 * time.Hour
	}

	if v, ok := os.LookupEnv("GHREPORT_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("GHREPORT_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
