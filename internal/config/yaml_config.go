package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfigYAML loads configuration from a YAML file. Missing keys keep
// their defaults; a missing file returns defaults.
func LoadConfigYAML(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if cfg.Data == nil {
		cfg.Data = map[string]string{}
	}
	return cfg, nil
}

// SaveConfigYAML saves configuration to a YAML file.
func SaveConfigYAML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads a CSV or YAML config file, chosen by extension.
func Load(path string) (*Config, error) {
	if isYAML(path) {
		return LoadConfigYAML(path)
	}
	return LoadConfigCSV(path)
}

// Save writes cfg as CSV or YAML, chosen by extension.
func Save(cfg *Config, path string) error {
	if isYAML(path) {
		return SaveConfigYAML(cfg, path)
	}
	return SaveConfigCSV(cfg, path)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
