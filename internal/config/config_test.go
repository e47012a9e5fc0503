package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	path := writeConfig(t, `{
		"database_url": "postgres://localhost/decision",
		"gemini_api_key": "key"
	}`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 20, cfg.DefaultFirstLimit)
	assert.Equal(t, 10, cfg.DefaultRefineLimit)
	assert.Equal(t, 1000, cfg.PoolFloor)
	assert.Equal(t, 10, cfg.PoolMultiplier)
	assert.Equal(t, 4, cfg.IngestionWorkers)
	assert.Equal(t, 5*time.Minute, cfg.IngestionTimeout)
	assert.Equal(t, 2*time.Minute, cfg.FilterTimeout)
}

func TestLoadFileValuesOverrideDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	path := writeConfig(t, `{
		"database_url": "postgres://localhost/decision",
		"gemini_api_key": "key",
		"port": 9000,
		"default_first_limit": 30,
		"pool_floor": 500,
		"ingestion_workers": 8
	}`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 30, cfg.DefaultFirstLimit)
	assert.Equal(t, 500, cfg.PoolFloor)
	assert.Equal(t, 8, cfg.IngestionWorkers)
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("PORT", "7001")
	path := writeConfig(t, `{
		"database_url": "postgres://file/db",
		"gemini_api_key": "file-key",
		"port": 9000
	}`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, "env-key", cfg.GeminiAPIKey)
	assert.Equal(t, 7001, cfg.Port)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("PORT", "")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoadMissingRequiredFields(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Defaults()
	base.DatabaseURL = "postgres://localhost/decision"
	base.GeminiAPIKey = "key"

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"negative refine limit", func(c *Config) { c.DefaultRefineLimit = -1 }},
		{"negative pool multiplier", func(c *Config) { c.PoolMultiplier = -1 }},
		{"negative workers", func(c *Config) { c.IngestionWorkers = -2 }},
		{"negative filter timeout", func(c *Config) { c.FilterTimeoutSeconds = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
