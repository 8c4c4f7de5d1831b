// Package config loads and persists the service configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tasktimer/internal/pomodoro"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Database DatabaseConfig    `yaml:"database"`
	Pomodoro pomodoro.Settings `yaml:"pomodoro"`
	Profile  ProfileConfig     `yaml:"profile"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	StaticDir   string `yaml:"static_dir"`
	MaxSessions int    `yaml:"max_sessions"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ProfileConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8420,
			MaxSessions: 100,
		},
		Database: DatabaseConfig{
			Path: "tasktimer.db",
		},
		Pomodoro: pomodoro.DefaultSettings(),
		Profile: ProfileConfig{
			CacheTTL:       5 * time.Minute,
			RequestTimeout: 10 * time.Second,
		},
	}
}

// DefaultPath returns the config file location under the user's home.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tasktimer", "config.yaml"), nil
}

// Load reads the config file at path. A missing file is created with
// defaults. Keys absent from the file keep their default values, and the
// pomodoro durations are clamped into range.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Pomodoro = cfg.Pomodoro.Clamp()
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
