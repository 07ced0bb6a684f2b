// Package config provides application-wide configuration for the
// Aviationstack MCP server. Values come from an optional YAML file overlaid
// by environment variables; every field has a safe default so the binary
// runs locally with nothing but an API key set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration.
type Config struct {
	// Aviationstack client
	APIKey         string  // AVIATIONSTACK_API_KEY — required, no default
	BaseURL        string  // AVIATIONSTACK_BASE_URL — default: "http://api.aviationstack.com/v1/"
	TimeoutSeconds float64 // AVIATIONSTACK_TIMEOUT_SECONDS — default: 10
	MaxRetries     int     // AVIATIONSTACK_MAX_RETRIES — default: 2
	BackoffSeconds float64 // AVIATIONSTACK_RETRY_BACKOFF_SECONDS — default: 0.5

	// Serving
	HTTPAddr string // AVSTACK_HTTP_ADDR — default: "" (stdio transport only)
	DBPath   string // AVSTACK_DB_PATH — default: "" (invocation log disabled)
}

const (
	envKeyAPIKey         = "AVIATIONSTACK_API_KEY"
	envKeyBaseURL        = "AVIATIONSTACK_BASE_URL"
	envKeyTimeoutSeconds = "AVIATIONSTACK_TIMEOUT_SECONDS"
	envKeyMaxRetries     = "AVIATIONSTACK_MAX_RETRIES"
	envKeyBackoffSeconds = "AVIATIONSTACK_RETRY_BACKOFF_SECONDS"
	envKeyHTTPAddr       = "AVSTACK_HTTP_ADDR"
	envKeyDBPath         = "AVSTACK_DB_PATH"
)

// Defaults matching the upstream provider contract.
const (
	DefaultBaseURL        = "http://api.aviationstack.com/v1/"
	DefaultTimeoutSeconds = 10
	DefaultMaxRetries     = 2
	DefaultBackoffSeconds = 0.5
)

// Load reads configuration from environment variables, applying defaults for
// missing values.
func Load() Config {
	return applyEnv(defaults())
}

// LoadFile reads a YAML config file, then overlays environment variables
// (env always wins). Missing values fall back to defaults.
func LoadFile(path string) (Config, error) {
	cfg := defaults()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	file.overlay(&cfg)

	return applyEnv(cfg), nil
}

// Timeout returns the per-attempt HTTP timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// Backoff returns the base retry backoff as a duration.
func (c Config) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds * float64(time.Second))
}

// fileConfig is the YAML schema; pointer fields distinguish "absent" from
// zero values.
type fileConfig struct {
	APIKey         *string  `yaml:"api_key"`
	BaseURL        *string  `yaml:"base_url"`
	TimeoutSeconds *float64 `yaml:"timeout_seconds"`
	MaxRetries     *int     `yaml:"max_retries"`
	BackoffSeconds *float64 `yaml:"backoff_seconds"`
	HTTPAddr       *string  `yaml:"http_addr"`
	DBPath         *string  `yaml:"db_path"`
}

func (f fileConfig) overlay(cfg *Config) {
	if f.APIKey != nil {
		cfg.APIKey = *f.APIKey
	}
	if f.BaseURL != nil {
		cfg.BaseURL = *f.BaseURL
	}
	if f.TimeoutSeconds != nil {
		cfg.TimeoutSeconds = *f.TimeoutSeconds
	}
	if f.MaxRetries != nil {
		cfg.MaxRetries = *f.MaxRetries
	}
	if f.BackoffSeconds != nil {
		cfg.BackoffSeconds = *f.BackoffSeconds
	}
	if f.HTTPAddr != nil {
		cfg.HTTPAddr = *f.HTTPAddr
	}
	if f.DBPath != nil {
		cfg.DBPath = *f.DBPath
	}
}

func defaults() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		TimeoutSeconds: DefaultTimeoutSeconds,
		MaxRetries:     DefaultMaxRetries,
		BackoffSeconds: DefaultBackoffSeconds,
	}
}

func applyEnv(cfg Config) Config {
	cfg.APIKey = envOr(envKeyAPIKey, cfg.APIKey)
	cfg.BaseURL = envOr(envKeyBaseURL, cfg.BaseURL)
	cfg.TimeoutSeconds = envFloatOr(envKeyTimeoutSeconds, cfg.TimeoutSeconds)
	cfg.MaxRetries = envIntOr(envKeyMaxRetries, cfg.MaxRetries)
	cfg.BackoffSeconds = envFloatOr(envKeyBackoffSeconds, cfg.BackoffSeconds)
	cfg.HTTPAddr = envOr(envKeyHTTPAddr, cfg.HTTPAddr)
	cfg.DBPath = envOr(envKeyDBPath, cfg.DBPath)
	return cfg
}

// envOr returns the value of the environment variable key, or fallback if
// not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envFloatOr parses key as a float, or returns fallback if unset/invalid.
func envFloatOr(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// envIntOr parses key as an int, or returns fallback if unset/invalid.
func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
