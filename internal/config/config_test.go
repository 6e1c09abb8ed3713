package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "none")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DispatchInProcess, cfg.Dispatch.Mode)
	assert.Equal(t, 4, cfg.Dispatch.Workers)
	assert.Equal(t, 45*time.Second, cfg.Research.CallTimeout)
	assert.Equal(t, time.Duration(0), cfg.Research.JobDeadline)
	assert.Equal(t, 3, cfg.Research.MaxInFlight)
	assert.Equal(t, 20, cfg.Research.MaxTopics)
	assert.Equal(t, "none", cfg.LLM.Provider)
}

func TestLoad_QueueModeRequiresRedisAndPostgres(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "none")
	t.Setenv("DISPATCH_MODE", "queue")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")

	t.Setenv("REDIS_ADDR", "localhost:6379")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")

	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/db")
	_, err = Load()
	require.NoError(t, err)
}

func TestValidate_ProviderKeys(t *testing.T) {
	cfg := &Config{}
	cfg.Research.Provider = "serper"
	cfg.Sanitize()
	require.Error(t, cfg.Validate())

	cfg.Research.SerperAPIKey = "k"
	require.NoError(t, cfg.Validate())

	cfg.Research.Provider = "customsearch"
	require.Error(t, cfg.Validate())

	cfg.Research.Provider = "bing"
	require.Error(t, cfg.Validate())

	cfg.Research.Provider = "none"
	cfg.LLM.Provider = "gemini"
	require.Error(t, cfg.Validate())
	cfg.LLM.APIKey = "k"
	require.NoError(t, cfg.Validate())
}

func TestSanitize_ClampsValues(t *testing.T) {
	cfg := &Config{}
	cfg.Dispatch.Mode = " QUEUE "
	cfg.Research.MaxInFlight = -2
	cfg.Research.JobDeadline = -time.Second
	cfg.Sanitize()

	assert.Equal(t, DispatchQueue, cfg.Dispatch.Mode)
	assert.Equal(t, 1, cfg.Research.MaxInFlight)
	assert.Equal(t, time.Duration(0), cfg.Research.JobDeadline)
	assert.Equal(t, 4, cfg.Dispatch.Workers)
}

func TestLoad_DefaultVisibilityOutlastsLongestJob(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "none")
	t.Setenv("DISPATCH_MODE", "queue")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/research")

	cfg, err := Load()
	require.NoError(t, err)

	// 20 topics, 3 at a time, 45s each
	assert.Equal(t, 7*45*time.Second, cfg.LongestJob())
	assert.Greater(t, cfg.Dispatch.VisibilityTimeout, cfg.LongestJob())
	assert.Empty(t, cfg.Warnings())
}

func TestWarnings_ShortVisibility(t *testing.T) {
	cfg := &Config{}
	cfg.Dispatch.Mode = DispatchQueue
	cfg.Dispatch.VisibilityTimeout = 2 * time.Minute
	cfg.Research.MaxTopics = 20
	cfg.Research.MaxInFlight = 3
	cfg.Research.CallTimeout = 45 * time.Second
	cfg.Sanitize()

	warns := cfg.Warnings()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "QUEUE_VISIBILITY")

	cfg.Research.JobDeadline = time.Minute
	assert.Equal(t, time.Minute, cfg.LongestJob())
	assert.Empty(t, cfg.Warnings())

	cfg.Dispatch.Mode = DispatchInProcess
	cfg.Research.JobDeadline = 0
	assert.Empty(t, cfg.Warnings())
}
