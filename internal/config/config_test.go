package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottofry/internal/logger"
	"github.com/hammamikhairi/ottofry/internal/storage"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ottofry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

var quiet = logger.New(logger.LevelOff, nil)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil), quiet)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Engine.TickInterval)
	assert.Equal(t, 10*time.Second, cfg.Engine.AlertWindow)
	assert.Equal(t, SelectionImplicitReset, cfg.Engine.SelectionPolicy)
	assert.Equal(t, storage.BackendYAML, cfg.Preferences.Backend)
	assert.NotEmpty(t, cfg.Preferences.Path)
	assert.False(t, cfg.VoiceReady())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
engine:
  tick_interval: 500ms
  selection_policy: reject
preferences:
  backend: badger
  path: /tmp/prefs
catalog:
  file: foods.yaml
  watch: true
metrics:
  addr: ":9100"
`)
	cfg, err := Load(path, envMap(map[string]string{
		"OTTOFRY_ALERT_WINDOW": "3s",
		"OTTOFRY_METRICS_ADDR": "127.0.0.1:9200",
		"AZURE_SPEECH_KEY":     "k",
		"AZURE_SPEECH_REGION":  "westeurope",
		"OTTOFRY_LOG_LEVEL":    " ",

		"OTTOFRY_AUDIO_CACHE_ENTRIES": "16",
		"OTTOFRY_AUDIO_CACHE_MAX_AGE": "48h",
	}), quiet)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Engine.TickInterval)
	assert.Equal(t, 3*time.Second, cfg.Engine.AlertWindow)
	assert.Equal(t, SelectionReject, cfg.Engine.SelectionPolicy)
	assert.Equal(t, storage.BackendBadger, cfg.Preferences.Backend)
	assert.Equal(t, "foods.yaml", cfg.Catalog.File)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, "127.0.0.1:9200", cfg.Metrics.Addr)
	assert.Equal(t, "normal", cfg.Log.Level)
	assert.True(t, cfg.VoiceReady())
	assert.Equal(t, 16, cfg.Voice.CacheEntries)
	assert.Equal(t, 48*time.Hour, cfg.Voice.CacheMaxAge)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "engine:\n  tick_rate: 1s\n")
	_, err := Load(path, envMap(nil), quiet)
	assert.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""), envMap(nil), quiet)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Engine.TickInterval)
}

func TestApplyEnvBadValues(t *testing.T) {
	cfg := Default(t.TempDir())
	err := cfg.ApplyEnv(envMap(map[string]string{
		"OTTOFRY_TICK_INTERVAL": "soon",
		"OTTOFRY_CATALOG_WATCH": "maybe",

		"OTTOFRY_AUDIO_CACHE_ENTRIES": "lots",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTTOFRY_TICK_INTERVAL")
	assert.Contains(t, err.Error(), "OTTOFRY_CATALOG_WATCH")
	assert.Contains(t, err.Error(), "OTTOFRY_AUDIO_CACHE_ENTRIES")
	assert.Equal(t, time.Second, cfg.Engine.TickInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick", func(c *Config) { c.Engine.TickInterval = 0 }},
		{"negative window", func(c *Config) { c.Engine.AlertWindow = -time.Second }},
		{"policy", func(c *Config) { c.Engine.SelectionPolicy = "ask" }},
		{"backend", func(c *Config) { c.Preferences.Backend = "sqlite" }},
		{"yaml without path", func(c *Config) { c.Preferences.Path = "" }},
		{"voice backend", func(c *Config) { c.Voice.Backend = "espeak" }},
		{"unbounded clip cache", func(c *Config) { c.Voice.CacheEntries = 0 }},
		{"negative clip age", func(c *Config) { c.Voice.CacheMaxAge = -time.Hour }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := Default(t.TempDir())
	cfg.Preferences = PreferencesConfig{Backend: storage.BackendMemory}
	assert.NoError(t, cfg.Validate())
}
