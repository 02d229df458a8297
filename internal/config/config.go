// Package config loads application configuration from YAML with
// environment overrides. Missing file falls back to defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "SITREP_CONFIG"
	dbPathEnv     = "SITREP_DB"
	logLevelEnv   = "SITREP_LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls the log file location and verbosity.
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// BroadcastConfig tunes the fan-out hub.
type BroadcastConfig struct {
	// Buffer is the per-session outbound channel depth. Sends beyond a
	// full buffer are dropped rather than blocking the publisher.
	Buffer int `yaml:"buffer"`
	// RatePerSec caps deliveries per session per second. 0 disables.
	RatePerSec float64 `yaml:"ratePerSec"`
	// Burst is the rate limiter burst size.
	Burst int `yaml:"burst"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. The config path comes from SITREP_CONFIG or defaults to
// ~/.sitrep/config.yaml.
func Load() (Config, error) {
	cfg := defaultConfig()

	path := os.Getenv(configPathEnv)
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".sitrep", "config.yaml")
		}
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults only.
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dbPathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SITREP_BROADCAST_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Broadcast.Buffer = n
		}
	}
}

func (c *Config) fillDefaults() {
	d := defaultConfig()
	if c.Database.Path == "" {
		c.Database.Path = d.Database.Path
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Broadcast.Buffer <= 0 {
		c.Broadcast.Buffer = d.Broadcast.Buffer
	}
	if c.Broadcast.Burst <= 0 {
		c.Broadcast.Burst = d.Broadcast.Burst
	}
}

func defaultConfig() Config {
	dbPath := "sitrep.db"
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, ".sitrep", "sitrep.db")
	}
	return Config{
		Database:  DatabaseConfig{Path: dbPath},
		Logging:   LoggingConfig{Level: "info"},
		Broadcast: BroadcastConfig{Buffer: 64, RatePerSec: 0, Burst: 16},
	}
}
