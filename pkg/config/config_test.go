package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 45901, cfg.Port)
	assert.Equal(t, "https://iskole.net", cfg.Portal.BaseURL)
	assert.Equal(t, "https://api.ipify.org", cfg.Portal.PublicIPURL)
	assert.Equal(t, 30*time.Second, cfg.Automation.PollInterval)
	assert.Equal(t, 3, cfg.Automation.FetchRetries)
	assert.Equal(t, 10*time.Second, cfg.Automation.RetryDelay)
	assert.False(t, cfg.Automation.AutoStart)
	assert.Equal(t, 3*time.Minute, cfg.Auth.HelperTimeout)
	assert.NotEmpty(t, cfg.Storage.DataDir)
	assert.NotEmpty(t, cfg.Export.Dir)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("PORT", "8099")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("AUTO_START", "true")
	t.Setenv("DATA_DIR", "/tmp/agent-data")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, 8099, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Automation.PollInterval)
	assert.True(t, cfg.Automation.AutoStart)
	assert.Equal(t, "/tmp/agent-data", cfg.Storage.DataDir)
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv("ENV", "staging")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("garbage", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("-5s", time.Minute))
	assert.Equal(t, 15*time.Second, parseDuration("15s", time.Minute))
}
