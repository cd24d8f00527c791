// Package config loads application settings. Precedence, lowest first:
// built-in defaults, the YAML file, OTTOFRY_* environment variables,
// then command-line flags applied by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/ottofry/internal/logger"
	"github.com/hammamikhairi/ottofry/internal/storage"
)

// DefaultPath is the config file looked up when -config is not given.
const DefaultPath = "ottofry.yaml"

// Selection policies.
const (
	SelectionImplicitReset = "implicit"
	SelectionReject        = "reject"
)

// Voice backends.
const (
	VoiceAzure = "azure"
	VoiceNone  = "none"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full application configuration.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Voice       VoiceConfig       `yaml:"voice"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
}

// EngineConfig tunes the timer state machine.
type EngineConfig struct {
	TickInterval    time.Duration `yaml:"tick_interval"`
	AlertWindow     time.Duration `yaml:"alert_window"`
	SelectionPolicy string        `yaml:"selection_policy"`
}

// PreferencesConfig picks the preference store. Path is a file for yaml
// and a directory for badger.
type PreferencesConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// CatalogConfig optionally replaces the built-in food list.
type CatalogConfig struct {
	File  string `yaml:"file"`
	Watch bool   `yaml:"watch"`
}

// VoiceConfig selects the TTS backend. An empty Name uses the backend's
// default voice. Credentials come from the environment only.
//
// Fixed lines stay cached for good. Recipe lines are capped at
// CacheEntries in memory and dropped from disk after CacheMaxAge unused.
type VoiceConfig struct {
	Backend      string        `yaml:"backend"`
	Name         string        `yaml:"name"`
	CacheDir     string        `yaml:"cache_dir"`
	CacheWrite   bool          `yaml:"cache_write"`
	CacheEntries int           `yaml:"cache_entries"`
	CacheMaxAge  time.Duration `yaml:"cache_max_age"`
	ChunkSize    int           `yaml:"chunk_size"`
	AzureKey     string        `yaml:"-"`
	AzureRegion  string        `yaml:"-"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controls the logger. File "stderr" logs to the console.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration rooted at dataDir.
func Default(dataDir string) Config {
	return Config{
		Engine: EngineConfig{
			TickInterval:    time.Second,
			AlertWindow:     10 * time.Second,
			SelectionPolicy: SelectionImplicitReset,
		},
		Preferences: PreferencesConfig{
			Backend: storage.BackendYAML,
			Path:    filepath.Join(dataDir, "preferences.yaml"),
		},
		Voice: VoiceConfig{
			Backend:      VoiceAzure,
			CacheDir:     filepath.Join(dataDir, "audio"),
			CacheWrite:   true,
			CacheEntries: 64,
			CacheMaxAge:  30 * 24 * time.Hour,
			ChunkSize:    200,
		},
		Log: LogConfig{
			Level: "normal",
			File:  filepath.Join(dataDir, "ottofry.log"),
		},
	}
}

// DataDir returns the per-user state directory, falling back to
// ./.ottofry when the OS has no config home.
func DataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ottofry")
	}
	return ".ottofry"
}

// Load builds the configuration from defaults, the file at path (a
// missing file is fine), and the environment seen through lookup.
func Load(path string, lookup LookupFunc, log *logger.Logger) (Config, error) {
	cfg := Default(DataDir())

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug("config: %s not found, using defaults", path)
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := decode(bytes.NewReader(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		log.Info("config: loaded %s", path)
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode parses YAML strictly; unknown keys are errors.
func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from OTTOFRY_* variables and the Azure
// credentials. Empty values are ignored.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	dur("OTTOFRY_TICK_INTERVAL", &c.Engine.TickInterval)
	dur("OTTOFRY_ALERT_WINDOW", &c.Engine.AlertWindow)
	str("OTTOFRY_SELECTION_POLICY", &c.Engine.SelectionPolicy)
	str("OTTOFRY_PREFS_BACKEND", &c.Preferences.Backend)
	str("OTTOFRY_PREFS_PATH", &c.Preferences.Path)
	str("OTTOFRY_CATALOG_FILE", &c.Catalog.File)
	boolean("OTTOFRY_CATALOG_WATCH", &c.Catalog.Watch)
	str("OTTOFRY_VOICE_BACKEND", &c.Voice.Backend)
	str("OTTOFRY_VOICE_NAME", &c.Voice.Name)
	str("OTTOFRY_AUDIO_CACHE_DIR", &c.Voice.CacheDir)
	boolean("OTTOFRY_AUDIO_CACHE_WRITE", &c.Voice.CacheWrite)
	integer("OTTOFRY_AUDIO_CACHE_ENTRIES", &c.Voice.CacheEntries)
	dur("OTTOFRY_AUDIO_CACHE_MAX_AGE", &c.Voice.CacheMaxAge)
	str("OTTOFRY_METRICS_ADDR", &c.Metrics.Addr)
	str("OTTOFRY_LOG_LEVEL", &c.Log.Level)
	str("OTTOFRY_LOG_FILE", &c.Log.File)
	str("AZURE_SPEECH_KEY", &c.Voice.AzureKey)
	str("AZURE_SPEECH_REGION", &c.Voice.AzureRegion)

	return errors.Join(errs...)
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("engine.tick_interval must be positive, got %s", c.Engine.TickInterval))
	}
	if c.Engine.AlertWindow <= 0 {
		errs = append(errs, fmt.Errorf("engine.alert_window must be positive, got %s", c.Engine.AlertWindow))
	}
	switch c.Engine.SelectionPolicy {
	case SelectionImplicitReset, SelectionReject:
	default:
		errs = append(errs, fmt.Errorf("engine.selection_policy %q: want %q or %q", c.Engine.SelectionPolicy, SelectionImplicitReset, SelectionReject))
	}
	switch c.Preferences.Backend {
	case storage.BackendMemory:
	case storage.BackendYAML, storage.BackendBadger:
		if c.Preferences.Path == "" {
			errs = append(errs, fmt.Errorf("preferences.path is required for backend %q", c.Preferences.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("preferences.backend %q: want memory, yaml or badger", c.Preferences.Backend))
	}
	switch c.Voice.Backend {
	case VoiceAzure, VoiceNone:
	default:
		errs = append(errs, fmt.Errorf("voice.backend %q: want %q or %q", c.Voice.Backend, VoiceAzure, VoiceNone))
	}
	if c.Voice.ChunkSize < 0 {
		errs = append(errs, errors.New("voice.chunk_size must not be negative"))
	}
	if c.Voice.CacheEntries <= 0 {
		errs = append(errs, fmt.Errorf("voice.cache_entries must be positive, got %d", c.Voice.CacheEntries))
	}
	if c.Voice.CacheMaxAge < 0 {
		errs = append(errs, fmt.Errorf("voice.cache_max_age must not be negative, got %s", c.Voice.CacheMaxAge))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// VoiceReady reports whether Azure TTS can be used.
func (c Config) VoiceReady() bool {
	return c.Voice.Backend == VoiceAzure && c.Voice.AzureKey != "" && c.Voice.AzureRegion != ""
}
