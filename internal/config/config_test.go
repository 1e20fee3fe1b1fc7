package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gitpulse/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "gitpulse.db", cfg.DBPath)
	assert.Equal(t, "http://127.0.0.1:5001", cfg.ScorerURL)
	assert.Equal(t, 10, cfg.SummaryBudget)
	assert.False(t, cfg.HasCompletionCredentials())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GITPULSE_POLL_INTERVAL", "30s")
	t.Setenv("GITPULSE_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("GITPULSE_DB_PATH", "/tmp/test.db")
	t.Setenv("GITPULSE_SCORER_URL", "http://scorer:5001")
	t.Setenv("GITPULSE_ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("GITPULSE_REDIS_URL", "redis://localhost:6379")
	t.Setenv("GITPULSE_SUMMARY_BUDGET", "25")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "http://scorer:5001", cfg.ScorerURL)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, 25, cfg.SummaryBudget)
	assert.True(t, cfg.HasCompletionCredentials())
}

func TestLoadInvalidInterval(t *testing.T) {
	t.Setenv("GITPULSE_POLL_INTERVAL", "not-a-duration")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITPULSE_POLL_INTERVAL")
}

func TestLoadInvalidBudget(t *testing.T) {
	t.Setenv("GITPULSE_SUMMARY_BUDGET", "-3")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITPULSE_SUMMARY_BUDGET")
}
