// Package config handles reading finwell's config.yaml and environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/finwell/internal/migration"
	"github.com/abhisek/finwell/internal/remote"
)

// Config is the top-level structure of config.yaml.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Retry     RetryConfig     `yaml:"retry"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Migration MigrationConfig `yaml:"migration"`
	Stub      StubConfig      `yaml:"stub"`
}

// APIConfig locates the remote survey service.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration `yaml:"timeout"`
	// BackgroundTimeout bounds each detached session sync task.
	BackgroundTimeout time.Duration `yaml:"background_timeout"`
}

// RetryConfig configures retries of transient remote failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// StorageConfig locates the local database. Empty means the default path.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// MigrationConfig controls guest data migration.
type MigrationConfig struct {
	ClearPolicy string `yaml:"clear_policy"` // always | on_full_success
}

// StubConfig configures the development stub server.
type StubConfig struct {
	Addr       string `yaml:"addr"`
	Permissive bool   `yaml:"permissive"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	r := remote.DefaultRetryConfig()
	return &Config{
		API: APIConfig{
			BaseURL:           "http://127.0.0.1:8787/api/v1",
			Timeout:           10 * time.Second,
			BackgroundTimeout: 15 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: r.MaxAttempts,
			InitialWait: r.InitialWait,
			MaxWait:     r.MaxWait,
			Multiplier:  r.Multiplier,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Migration: MigrationConfig{
			ClearPolicy: migration.ClearAlways.String(),
		},
		Stub: StubConfig{
			Addr:       "127.0.0.1:8787",
			Permissive: true,
		},
	}
}

// DefaultPath resolves the config file path:
// 1. FINWELL_CONFIG environment variable
// 2. $XDG_CONFIG_HOME/finwell/config.yaml
// 3. ~/.config/finwell/config.yaml
func DefaultPath() (string, error) {
	if p := os.Getenv("FINWELL_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "finwell", "config.yaml"), nil
}

// ReadConfig reads path over the defaults, so a partial file keeps default
// values for everything it leaves out.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// WriteConfig writes cfg to path, creating the parent directory.
func WriteConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Load builds the effective configuration: defaults, then the file at path
// if it exists, then FINWELL_* environment overrides. An empty path uses
// DefaultPath. The result is validated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := ReadConfig(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, os.ErrNotExist):
		cfg = DefaultConfig()
	default:
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from FINWELL_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("FINWELL_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("FINWELL_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FINWELL_API_TIMEOUT: %w", err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("FINWELL_RETRY_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FINWELL_RETRY_MAX_ATTEMPTS: %w", err)
		}
		c.Retry.MaxAttempts = n
	}
	if v := os.Getenv("FINWELL_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("FINWELL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FINWELL_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("FINWELL_MIGRATION_CLEAR_POLICY"); v != "" {
		c.Migration.ClearPolicy = v
	}
	return nil
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.BackgroundTimeout <= 0 {
		return fmt.Errorf("api.background_timeout must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be at least 1")
	}
	if c.Retry.InitialWait < 0 || c.Retry.MaxWait < c.Retry.InitialWait {
		return fmt.Errorf("retry waits must satisfy 0 <= initial_wait <= max_wait")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if _, err := migration.ParseClearPolicy(c.Migration.ClearPolicy); err != nil {
		return fmt.Errorf("migration.clear_policy: %w", err)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// RemoteRetry converts the retry section for the remote client.
func (c *Config) RemoteRetry() remote.RetryConfig {
	return remote.RetryConfig{
		MaxAttempts: c.Retry.MaxAttempts,
		InitialWait: c.Retry.InitialWait,
		MaxWait:     c.Retry.MaxWait,
		Multiplier:  c.Retry.Multiplier,
	}
}

// ClearPolicy returns the parsed migration clear policy.
func (c *Config) ClearPolicy() migration.ClearPolicy {
	p, _ := migration.ParseClearPolicy(c.Migration.ClearPolicy)
	return p
}
