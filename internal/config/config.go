package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Lights    []LightConfig   `yaml:"lights"`
	Database  DatabaseConfig  `yaml:"database"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	LogLevel  string          `yaml:"log_level"`
}

// LightConfig identifies one known light.
type LightConfig struct {
	Name    string `yaml:"name"`    // advertised BLE name, e.g. "NEEWER-MS60C"
	Address string `yaml:"address"` // transport address (MAC on Linux, UUID on macOS)
	MAC     string `yaml:"mac"`     // optional explicit MAC when address is not one
}

// DatabaseConfig holds capability-database settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	CachePath       string `yaml:"cache_path"`
	RefreshInterval int    `yaml:"refresh_interval"` // seconds
}

// ReconnectConfig holds reconnection settings.
type ReconnectConfig struct {
	MaxBackoff int `yaml:"max_backoff"` // seconds
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "neewerctl")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL:             "https://raw.githubusercontent.com/keefo/NeewerLite/main/Database/lights.json",
			CachePath:       filepath.Join(DefaultConfigDir(), "lights.json"),
			RefreshInterval: int((8 * time.Hour).Seconds()),
		},
		Reconnect: ReconnectConfig{
			MaxBackoff: 30,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled with
// defaults. Tilde (~) in database.cache_path is expanded to the user's home
// directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Database.CachePath = expandTilde(cfg.Database.CachePath)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	for i, l := range c.Lights {
		if l.Name == "" && l.Address == "" {
			return fmt.Errorf("lights[%d]: name or address must be set", i)
		}
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database.url must not be empty")
	}

	if c.Database.RefreshInterval <= 0 {
		return fmt.Errorf("database.refresh_interval must be > 0")
	}

	if c.Reconnect.MaxBackoff <= 0 {
		return fmt.Errorf("reconnect.max_backoff must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// WriteDefault writes a commented default config to the default path if no
// config file exists yet. Returns the path written, or "" if a config
// already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(DefaultConfigDir(), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("marshaling default config: %w", err)
	}
	header := "# neewerctl configuration\n# See https://github.com/chaz8081/neewerctl for documentation.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}
	return path, nil
}

// ParseLogLevel maps a log_level string to a slog.Level. Unknown values
// default to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
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

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
