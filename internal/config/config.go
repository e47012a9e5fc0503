// Package config provides configuration loading and validation for the
// decision agent. Values come from a JSON file and environment
// variables, with the environment taking precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds every tunable of the service. All fields are optional in
// the JSON file; missing values use defaults or environment variables.
type Config struct {
	// Connections
	DatabaseURL  string `json:"database_url,omitempty"`   // PostgreSQL connection URL
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // Gemini API key

	// Server
	Port int `json:"port,omitempty"` // HTTP listen port

	// Matching
	DefaultFirstLimit  int `json:"default_first_limit,omitempty"`  // Result limit for a first search without filters
	DefaultRefineLimit int `json:"default_refine_limit,omitempty"` // Result limit for a filtered search
	PoolFloor          int `json:"pool_floor,omitempty"`           // Minimum candidate pool size
	PoolMultiplier     int `json:"pool_multiplier,omitempty"`      // Pool size per requested candidate

	// FilterTimeout bounds one filter request end to end, covering the
	// generation calls and the pool query.
	FilterTimeout time.Duration `json:"-"`

	// FilterTimeoutSeconds is the JSON/env form of FilterTimeout.
	FilterTimeoutSeconds int `json:"filter_timeout_seconds,omitempty"`

	// Ingestion
	IngestionWorkers int           `json:"ingestion_workers,omitempty"` // Concurrent CV/job processing slots
	IngestionTimeout time.Duration `json:"-"`                           // Per-record processing deadline

	// IngestionTimeoutSeconds is the JSON/env form of IngestionTimeout.
	IngestionTimeoutSeconds int `json:"ingestion_timeout_seconds,omitempty"`

	// Behavior
	Development bool `json:"development,omitempty"` // Human-readable logs
}

// Defaults returns the production defaults.
func Defaults() Config {
	return Config{
		Port:                    8080,
		DefaultFirstLimit:       20,
		DefaultRefineLimit:      10,
		PoolFloor:               1000,
		PoolMultiplier:          10,
		FilterTimeoutSeconds:    120,
		IngestionWorkers:        4,
		IngestionTimeoutSeconds: 300,
	}
}

// Load reads the optional JSON file at path, overlays environment
// variables and fills remaining gaps with defaults. An empty path skips
// the file entirely.
func Load(path string) (*Config, error) {
	cfg := Config{}

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()
	cfg = cfg.MergeWithDefaults(Defaults())
	cfg.IngestionTimeout = time.Duration(cfg.IngestionTimeoutSeconds) * time.Second
	cfg.FilterTimeout = time.Duration(cfg.FilterTimeoutSeconds) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("INGESTION_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IngestionWorkers = n
		}
	}
	if v := os.Getenv("DEVELOPMENT"); v == "1" || v == "true" {
		c.Development = true
	}
}

// MergeWithDefaults returns a new Config with zero-valued fields filled
// from defaults.
func (c Config) MergeWithDefaults(defaults Config) Config {
	result := c
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DefaultFirstLimit == 0 {
		result.DefaultFirstLimit = defaults.DefaultFirstLimit
	}
	if result.DefaultRefineLimit == 0 {
		result.DefaultRefineLimit = defaults.DefaultRefineLimit
	}
	if result.PoolFloor == 0 {
		result.PoolFloor = defaults.PoolFloor
	}
	if result.PoolMultiplier == 0 {
		result.PoolMultiplier = defaults.PoolMultiplier
	}
	if result.IngestionWorkers == 0 {
		result.IngestionWorkers = defaults.IngestionWorkers
	}
	if result.IngestionTimeoutSeconds == 0 {
		result.IngestionTimeoutSeconds = defaults.IngestionTimeoutSeconds
	}
	if result.FilterTimeoutSeconds == 0 {
		result.FilterTimeoutSeconds = defaults.FilterTimeoutSeconds
	}
	return result
}

// Validate checks that the configuration can actually run the service.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: 'database_url' is required (or DATABASE_URL)")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config error: 'gemini_api_key' is required (or GEMINI_API_KEY)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535")
	}
	if c.DefaultFirstLimit < 1 || c.DefaultRefineLimit < 1 {
		return fmt.Errorf("config error: default limits must be positive")
	}
	if c.PoolFloor < 1 || c.PoolMultiplier < 1 {
		return fmt.Errorf("config error: pool sizing must be positive")
	}
	if c.IngestionWorkers < 1 {
		return fmt.Errorf("config error: 'ingestion_workers' must be positive")
	}
	if c.FilterTimeoutSeconds < 1 {
		return fmt.Errorf("config error: 'filter_timeout_seconds' must be positive")
	}
	return nil
}
