package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "clearing.db", cfg.Database.Path)
	assert.NotEmpty(t, cfg.JWT.Secret)
	assert.InDelta(t, 0.05, cfg.Engine.FailureRate, 1e-9)
	assert.False(t, cfg.Engine.SuppressNettedOriginals)
	assert.Equal(t, 5, cfg.Engine.BatchWorkers)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FCA_APP_PORT", "9090")
	t.Setenv("FCA_DATABASE_PATH", "other.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "other.db", cfg.Database.Path)
}
