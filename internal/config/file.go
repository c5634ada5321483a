package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	if !filepath.IsAbs(path) {
		abspath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abspath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to unmarshal YAML config")
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	log.Debug().
		Str("config_file", path).
		Str("base_url", cfg.BaseURL).
		Bool("has_credentials", !cfg.OpenLibrary.IsZero()).
		Msg("Successfully parsed configuration file")

	return &cfg, nil
}

// Save writes the configuration to path. Credentials live in this
// file, so it is created 0600 and existing permissions are tightened.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	log.Info().Str("path", path).Msg("Configuration saved")
	return nil
}
