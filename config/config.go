// Package config loads and validates the checker configuration from
// YAML with environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// HTTP server settings for metrics and health endpoints
	HTTP struct {
		Address string `yaml:"address"`
		Port    string `yaml:"port"`
	} `yaml:"http"`

	// Fetch settings for playlist source downloads
	Fetch struct {
		UserAgent string        `yaml:"user_agent"`
		Timeout   time.Duration `yaml:"timeout"`
		Attempts  int           `yaml:"attempts"`
	} `yaml:"fetch"`

	// Cache settings
	Cache struct {
		Dir string        `yaml:"dir"`
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	// Test settings for stream probing
	Test struct {
		SampleSize        int           `yaml:"sample_size"`
		Timeout           time.Duration `yaml:"timeout"`
		MinPlayableToPass int           `yaml:"min_playable_to_pass"`
		Delay             time.Duration `yaml:"delay"`
		SkipAdultGroups   bool          `yaml:"skip_adult_groups"`
		Shuffle           bool          `yaml:"shuffle"`
		MaxGroupsToTest   int           `yaml:"max_groups_to_test"`
		StreamsPerGroup   int           `yaml:"streams_per_group"`
		MaxConcurrent     int           `yaml:"max_concurrent"`
	} `yaml:"test"`

	// Countries to keep when filtering groups; empty keeps everything
	Countries []string `yaml:"countries"`

	// Output settings for saved playlists. Format forces the playlist
	// variant (m3u, m3u8, m3u8plus); empty auto-detects.
	Output struct {
		Dir    string `yaml:"dir"`
		Format string `yaml:"format"`
	} `yaml:"output"`

	// DBPath is the bbolt database holding probe history
	DBPath string `yaml:"db_path"`

	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	cfg := &Config{}

	cfg.HTTP.Address = "127.0.0.1"
	cfg.HTTP.Port = "8080"

	cfg.Fetch.UserAgent = "iptv-checker/1.0"
	cfg.Fetch.Timeout = 30 * time.Second
	cfg.Fetch.Attempts = 3

	cfg.Cache.Dir = "cache"
	cfg.Cache.TTL = 6 * time.Hour

	cfg.Test.SampleSize = 5
	cfg.Test.Timeout = 10 * time.Second
	cfg.Test.MinPlayableToPass = 1
	cfg.Test.Delay = 200 * time.Millisecond
	cfg.Test.SkipAdultGroups = true
	cfg.Test.Shuffle = true
	cfg.Test.MaxGroupsToTest = 10
	cfg.Test.StreamsPerGroup = 3
	cfg.Test.MaxConcurrent = 8

	cfg.Output.Dir = "out"
	cfg.DBPath = "probes.db"
	cfg.LogLevel = "info"

	return cfg
}

// Load reads a YAML config file over the defaults and applies
// environment variable overrides. path may be empty to use defaults
// only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTP.Address == "" {
		errors = append(errors, "HTTP address is required")
	}
	if c.HTTP.Port == "" {
		errors = append(errors, "HTTP port is required")
	}

	if c.Fetch.UserAgent == "" {
		errors = append(errors, "Fetch user agent is required")
	}
	if c.Fetch.Timeout <= 0 {
		errors = append(errors, "Fetch timeout must be positive")
	}
	if c.Fetch.Attempts < 1 {
		errors = append(errors, "Fetch attempts must be at least 1")
	}

	if c.Cache.Dir == "" {
		errors = append(errors, "Cache directory is required")
	}
	if c.Cache.TTL <= 0 {
		errors = append(errors, "Cache TTL must be positive")
	}

	if c.Test.SampleSize < 1 || c.Test.SampleSize > 50 {
		errors = append(errors, "Test sample size must be between 1 and 50")
	}
	if c.Test.Timeout < time.Second || c.Test.Timeout > 30*time.Second {
		errors = append(errors, "Test timeout must be between 1s and 30s")
	}
	if c.Test.MinPlayableToPass < 1 || c.Test.MinPlayableToPass > 5 {
		errors = append(errors, "Test min playable to pass must be between 1 and 5")
	}
	if c.Test.Delay < 0 || c.Test.Delay > 5*time.Second {
		errors = append(errors, "Test delay must be between 0 and 5s")
	}
	if c.Test.MaxGroupsToTest < 1 {
		errors = append(errors, "Test max groups must be at least 1")
	}
	if c.Test.StreamsPerGroup < 1 {
		errors = append(errors, "Test streams per group must be at least 1")
	}
	if c.Test.MaxConcurrent < 1 {
		errors = append(errors, "Test max concurrent must be at least 1")
	}

	for i, code := range c.Countries {
		if len(code) != 2 {
			errors = append(errors, fmt.Sprintf("Country %d (%q): must be a two-letter code", i, code))
		}
	}

	if c.Output.Dir == "" {
		errors = append(errors, "Output directory is required")
	}
	switch c.Output.Format {
	case "", "m3u", "m3u8", "m3u8plus":
	default:
		errors = append(errors, fmt.Sprintf("Unknown output format %q", c.Output.Format))
	}
	if c.DBPath == "" {
		errors = append(errors, "Database path is required")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("Unknown log level %q", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("HTTP_ADDRESS"); val != "" {
		cfg.HTTP.Address = val
	}
	if val := os.Getenv("HTTP_PORT"); val != "" {
		cfg.HTTP.Port = val
	}

	if val := os.Getenv("FETCH_USER_AGENT"); val != "" {
		cfg.Fetch.UserAgent = val
	}
	if val := os.Getenv("FETCH_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
		}
		cfg.Fetch.Timeout = d
	}
	if val := os.Getenv("FETCH_ATTEMPTS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid FETCH_ATTEMPTS: %w", err)
		}
		cfg.Fetch.Attempts = n
	}

	if val := os.Getenv("CACHE_DIR"); val != "" {
		cfg.Cache.Dir = val
	}
	if val := os.Getenv("CACHE_TTL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid CACHE_TTL format (expected duration like '1h', '30m'): %w", err)
		}
		cfg.Cache.TTL = d
	}

	if val := os.Getenv("TEST_SAMPLE_SIZE"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid TEST_SAMPLE_SIZE: %w", err)
		}
		cfg.Test.SampleSize = n
	}
	if val := os.Getenv("TEST_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid TEST_TIMEOUT: %w", err)
		}
		cfg.Test.Timeout = d
	}
	if val := os.Getenv("TEST_MAX_CONCURRENT"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid TEST_MAX_CONCURRENT: %w", err)
		}
		cfg.Test.MaxConcurrent = n
	}
	if val := os.Getenv("TEST_SKIP_ADULT_GROUPS"); val != "" {
		cfg.Test.SkipAdultGroups = val == "true" || val == "1"
	}

	if val := os.Getenv("COUNTRIES"); val != "" {
		cfg.Countries = cfg.Countries[:0]
		for _, code := range strings.Split(val, ",") {
			if code = strings.TrimSpace(code); code != "" {
				cfg.Countries = append(cfg.Countries, code)
			}
		}
	}

	if val := os.Getenv("OUTPUT_DIR"); val != "" {
		cfg.Output.Dir = val
	}
	if val := os.Getenv("OUTPUT_FORMAT"); val != "" {
		cfg.Output.Format = val
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}

	return nil
}

// SlogLevel maps the configured log level onto slog's scale.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
