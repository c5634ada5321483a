// Package config manages client configuration, e.g. Open Library
// endpoint and authentication credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production Open Library endpoint
	DefaultBaseURL = "https://openlibrary.org"
	// DefaultCacheTTL is how long locally cached records stay fresh
	DefaultCacheTTL = time.Hour
)

// Credentials are the secrets used for authenticated write calls.
// Either a username/password pair for the Open Library login form, or
// an archive.org S3 access/secret key pair.
type Credentials struct {
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
	AccessKey string `yaml:"access,omitempty"`
	SecretKey string `yaml:"secret,omitempty"`
}

// IsZero reports whether no credentials are configured at all.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == "" && c.AccessKey == "" && c.SecretKey == ""
}

// S3 reports whether the credentials are archive.org S3 keys.
func (c Credentials) S3() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// Validate checks that the credentials form a usable pair.
func (c Credentials) Validate() error {
	if c.IsZero() {
		return nil
	}
	if c.S3() {
		return nil
	}
	if c.Username != "" && c.Password != "" {
		return nil
	}
	return &ConfigError{
		Field: "credentials",
		Msg:   "need either username+password or access+secret",
	}
}

// Config holds all configuration for the client and CLI
type Config struct {
	// BaseURL selects which Open Library backend to talk to
	BaseURL string `yaml:"base_url"`

	// OpenLibrary holds the account credentials
	OpenLibrary Credentials `yaml:"openlibrary"`

	// Logging configuration
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// Cache configuration for the local catalog cache
	Cache struct {
		Path string        `yaml:"path"`
		TTL  time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	cfg := &Config{}
	cfg.BaseURL = DefaultBaseURL
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	cfg.Cache.TTL = DefaultCacheTTL
	return cfg
}

// DefaultPath returns the canonical location of the config file:
// ~/.config/ol.yaml when ~/.config exists, ~/.ol.yaml otherwise.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ol.yaml"
	}
	configDir := filepath.Join(home, ".config")
	if info, err := os.Stat(configDir); err == nil && info.IsDir() {
		return filepath.Join(configDir, "ol.yaml")
	}
	return filepath.Join(home, ".ol.yaml")
}

// Load reads configuration with the usual precedence: defaults, then
// the config file (when present), then OL_* environment variables.
// A missing file is not an error; first-time users run `ol configure`.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	fileCfg, err := LoadFromFile(path)
	switch {
	case err == nil:
		merge(cfg, fileCfg)
	case os.IsNotExist(err):
		// fall through to env vars
	default:
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return &ConfigError{Field: "base_url", Msg: "must not be empty"}
	}
	return c.OpenLibrary.Validate()
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Msg
}

// merge copies non-zero values from src into dst.
func merge(dst, src *Config) {
	if src.BaseURL != "" {
		dst.BaseURL = strings.TrimSuffix(src.BaseURL, "/")
	}
	if !src.OpenLibrary.IsZero() {
		dst.OpenLibrary = src.OpenLibrary
	}
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
	if src.Cache.Path != "" {
		dst.Cache.Path = src.Cache.Path
	}
	if src.Cache.TTL != 0 {
		dst.Cache.TTL = src.Cache.TTL
	}
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) {
	if url := os.Getenv("OL_BASE_URL"); url != "" {
		cfg.BaseURL = strings.TrimSuffix(url, "/")
	}
	if username := os.Getenv("OL_USERNAME"); username != "" {
		cfg.OpenLibrary.Username = username
	}
	if password := os.Getenv("OL_PASSWORD"); password != "" {
		cfg.OpenLibrary.Password = password
	}
	if access := os.Getenv("OL_ACCESS_KEY"); access != "" {
		cfg.OpenLibrary.AccessKey = access
	}
	if secret := os.Getenv("OL_SECRET_KEY"); secret != "" {
		cfg.OpenLibrary.SecretKey = secret
	}
	if level := os.Getenv("OL_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("OL_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if path := os.Getenv("OL_CACHE_PATH"); path != "" {
		cfg.Cache.Path = path
	}
	if ttl := os.Getenv("OL_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.Cache.TTL = d
		}
	}
}
