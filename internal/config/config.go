// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken     string
	PollInterval    time.Duration
	ListenAddr      string
	DBPath          string
	ScorerURL       string
	AnthropicAPIKey string
	AnthropicModel  string
	RedisURL        string
	SummaryBudget   int
}

// HasCompletionCredentials reports whether a completion-service key is
// configured. Without one the summarization worker is disabled entirely at
// startup; ingestion continues unaffected.
func (c *Config) HasCompletionCredentials() bool {
	return c.AnthropicAPIKey != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. GITPULSE_GITHUB_TOKEN is optional (the public feed is readable
// unauthenticated at a lower rate limit), as are GITPULSE_ANTHROPIC_API_KEY
// (summarization disabled when absent) and GITPULSE_REDIS_URL (the queue
// falls back to in-process). Optional variables with defaults:
// GITPULSE_POLL_INTERVAL (15s), GITPULSE_LISTEN_ADDR (127.0.0.1:8080),
// GITPULSE_DB_PATH (gitpulse.db), GITPULSE_SCORER_URL (http://127.0.0.1:5001),
// GITPULSE_ANTHROPIC_MODEL, GITPULSE_SUMMARY_BUDGET (10).
func Load() (*Config, error) {
	pollInterval := 15 * time.Second
	if v, ok := os.LookupEnv("GITPULSE_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("GITPULSE_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		pollInterval = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("GITPULSE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "gitpulse.db"
	if v, ok := os.LookupEnv("GITPULSE_DB_PATH"); ok {
		dbPath = v
	}

	scorerURL := "http://127.0.0.1:5001"
	if v, ok := os.LookupEnv("GITPULSE_SCORER_URL"); ok {
		scorerURL = v
	}

	model := "claude-sonnet-4-20250514"
	if v, ok := os.LookupEnv("GITPULSE_ANTHROPIC_MODEL"); ok {
		model = v
	}

	budget := 10
	if v, ok := os.LookupEnv("GITPULSE_SUMMARY_BUDGET"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("GITPULSE_SUMMARY_BUDGET has invalid value %q", v)
		}
		budget = parsed
	}

	return &Config{
		GitHubToken:     os.Getenv("GITPULSE_GITHUB_TOKEN"),
		PollInterval:    pollInterval,
		ListenAddr:      listenAddr,
		DBPath:          dbPath,
		ScorerURL:       scorerURL,
		AnthropicAPIKey: os.Getenv("GITPULSE_ANTHROPIC_API_KEY"),
		AnthropicModel:  model,
		RedisURL:        os.Getenv("GITPULSE_REDIS_URL"),
		SummaryBudget:   budget,
	}, nil
}
