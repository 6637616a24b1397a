// Package config loads the YAML settings the actorctl demo binaries share:
// database path, scheduler transport, and the introspection HTTP server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings common to every actorctl subcommand that opens
// a coordinator.
type Config struct {
	// DBPath is the SQLite file the coordinator's db.Database opens.
	DBPath string `yaml:"db_path"`
	// SchedulerAddr is the gRPC address of the scheduler service. Empty
	// means actorctl runs against its in-process auto-accepting scheduler
	// stub; actorctl does not dial this address and refuses to start when
	// it is set.
	SchedulerAddr string `yaml:"scheduler_addr"`
	// SchedulerTimeout is loaded and defaulted, but actorctl does not apply
	// it to ScheduleRun calls.
	SchedulerTimeout time.Duration `yaml:"scheduler_timeout"`
	// HTTPAddr is the listen address for the introspection server
	// (/healthz, /metrics, /debug/gate).
	HTTPAddr string `yaml:"http_addr"`
}

const (
	// DefaultConfigFilename is the default path Load looks for.
	DefaultConfigFilename = "actorctl.yaml"

	// DefaultDBPath is used when Config.DBPath is unset.
	DefaultDBPath = "actorctl.db"

	// DefaultSchedulerTimeout is used when Config.SchedulerTimeout is unset.
	DefaultSchedulerTimeout = 10 * time.Second

	// DefaultHTTPAddr is used when Config.HTTPAddr is unset.
	DefaultHTTPAddr = ":8080"

	defaultFilePermissions = 0o600
)

var errConfigIsNotSet = errors.New("configuration is not set")

// Load reads settings from path, filling in defaults for anything unset. A
// missing file at the default path is not an error — Load falls back to an
// all-default Config so actorctl works with zero setup.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) && path == DefaultConfigFilename {
			cfg := &Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}
	if path == "" {
		path = DefaultConfigFilename
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), data, defaultFilePermissions); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.SchedulerTimeout <= 0 {
		cfg.SchedulerTimeout = DefaultSchedulerTimeout
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
}
