package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the wake-engine binaries.
type Config struct {
	// ControlAddress is the TCP address the daemon's control API listens on
	// and clients dial.
	ControlAddress string `yaml:"control_addr"`
	// CompanionAddress is the TCP address of the companion WebSocket hub.
	CompanionAddress string `yaml:"companion_addr"`
	// DatabasePath is the path to the SQLite database file.
	DatabasePath string `yaml:"database_file"`
	// OnBodyTimeout bounds a single companion on-body query.
	OnBodyTimeout time.Duration `yaml:"on_body_timeout"`
	// HistoryRetentionDays is how long completed dismissal records are kept.
	HistoryRetentionDays int `yaml:"history_retention_days"`
	// LogLevel is the minimum level for daemon logs (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// RingCommand is an optional program (with arguments) started to surface
	// the ringing screen when the display is off. The ringing identifier is
	// appended as the last argument.
	RingCommand []string `yaml:"ring_command,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for engine settings.
	DefaultConfigFilename = "wake-engine-settings.yaml"

	// DefaultControlAddress is where the control API listens when unset.
	DefaultControlAddress = "127.0.0.1:7757"

	// DefaultCompanionAddress is where the companion hub listens when unset.
	DefaultCompanionAddress = "127.0.0.1:7758"

	// DefaultDatabaseFilename is the default SQLite database filename.
	DefaultDatabaseFilename = "wake-engine.db"

	// DefaultOnBodyTimeout bounds the companion on-body query.
	DefaultOnBodyTimeout = 10 * time.Second

	// DefaultHistoryRetentionDays is the wake history retention window.
	DefaultHistoryRetentionDays = 365

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Load reads configuration from the provided path and validates essential fields.
// Missing file is not an error: defaults are returned so the daemon can run
// without any settings file at all.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := new(Config)
			if err = Validate(cfg); err != nil {
				return nil, err
			}

			return cfg, nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills in defaults and checks address formats.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ControlAddress == "" {
		cfg.ControlAddress = DefaultControlAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ControlAddress); err != nil {
		return fmt.Errorf("invalid control address: %w", err)
	}

	if cfg.CompanionAddress == "" {
		cfg.CompanionAddress = DefaultCompanionAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.CompanionAddress); err != nil {
		return fmt.Errorf("invalid companion address: %w", err)
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabaseFilename
	}

	if cfg.OnBodyTimeout <= 0 {
		cfg.OnBodyTimeout = DefaultOnBodyTimeout
	}

	if cfg.HistoryRetentionDays <= 0 {
		cfg.HistoryRetentionDays = DefaultHistoryRetentionDays
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return nil
}
