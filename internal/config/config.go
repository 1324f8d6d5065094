// Package config loads and persists the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied to unset fields.
const (
	DefaultDataRoot      = "./data"
	DefaultPlatformShare = 0.30
	DefaultLogLevel      = "info"
)

// Config holds the process-wide settings. The data root and platform
// share are read at session-load time; changing them affects sessions
// loaded afterwards, not ones already in memory.
type Config struct {
	// DataRoot is the directory all club sessions live under.
	DataRoot string `yaml:"data_root"`

	// PlatformShare is the platform's fraction of gross proceeds, in
	// [0, 1). The club cut is gross * (1 - PlatformShare).
	PlatformShare float64 `yaml:"platform_share"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Load reads the configuration at path. A missing file yields the
// defaults; a present but unparsable file is an error. Defaults are
// applied before decoding so an absent key keeps its default while an
// explicit value, including platform_share: 0, is honored.
func Load(path string) (*Config, error) {
	cfg := &Config{
		DataRoot:      DefaultDataRoot,
		PlatformShare: DefaultPlatformShare,
		LogLevel:      DefaultLogLevel,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("data_root must not be empty")
	}
	if c.PlatformShare < 0 || c.PlatformShare >= 1 {
		return fmt.Errorf("platform_share %v must be in [0, 1)", c.PlatformShare)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
