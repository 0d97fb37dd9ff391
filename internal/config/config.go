package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
)

const fileMode = 0o600

// Sentinel errors.
var (
	ErrNotFound = errors.New("no monitor found (run 'taskmon init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config represents the monitor configuration, persisted as
// monitor-config.json inside the monitor directory.
type Config struct {
	Version              int  `json:"version"`
	AutoDiscovery        bool `json:"auto_discovery"`
	HistoryRetentionDays int  `json:"history_retention_days"`
	MaxTasksPerFeature   int  `json:"max_tasks_per_feature"`
	BackupEnabled        bool `json:"backup_enabled"`
	MaxBackups           int  `json:"max_backups"`

	// dir is the absolute path to the monitor directory (not serialized).
	dir string
}

// NewDefault creates a Config with default values.
func NewDefault() *Config {
	return &Config{
		Version:              CurrentVersion,
		AutoDiscovery:        true,
		HistoryRetentionDays: DefaultHistoryRetentionDays,
		MaxTasksPerFeature:   DefaultMaxTasksPerFeature,
		BackupEnabled:        true,
		MaxBackups:           DefaultMaxBackups,
	}
}

// Dir returns the absolute path to the monitor directory.
func (c *Config) Dir() string {
	return c.dir
}

// SetDir sets the monitor directory path on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// FeaturesPath returns the directory holding per-feature task-file directories.
func (c *Config) FeaturesPath() string {
	return filepath.Join(c.dir, DefaultFeaturesDir)
}

// FeaturePath returns the markdown source directory for one feature.
func (c *Config) FeaturePath(featureID string) string {
	return filepath.Join(c.FeaturesPath(), featureID)
}

// BackupsPath returns the directory holding rotated backups.
func (c *Config) BackupsPath() string {
	return filepath.Join(c.dir, DefaultBackupsDir)
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if c.HistoryRetentionDays < 1 {
		return fmt.Errorf("%w: history_retention_days must be >= 1", ErrInvalid)
	}
	if c.MaxTasksPerFeature < 1 {
		return fmt.Errorf("%w: max_tasks_per_feature must be >= 1", ErrInvalid)
	}
	if c.MaxBackups < 1 {
		return fmt.Errorf("%w: max_backups must be >= 1", ErrInvalid)
	}
	return nil
}

// Init creates a new monitor in the given directory with default settings.
// It creates the monitor directory, the features subdirectory, and the
// config file.
func Init(dir string) (*Config, error) {
	const dirMode = 0o750

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault()
	cfg.SetDir(absDir)

	if err := os.MkdirAll(cfg.FeaturesPath(), dirMode); err != nil {
		return nil, fmt.Errorf("creating features directory: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), append(data, '\n'), fileMode)
}

// Load reads and validates a config from the given monitor directory.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	// Migrate old config versions forward before validating.
	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}

	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindDir walks upward from startDir looking for a monitor directory
// containing monitor-config.json. Returns the absolute path to the
// monitor directory.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, DefaultDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, DefaultDir), nil
		}

		// Also check if we're inside the monitor directory itself.
		candidate = filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.MonitorNotFound,
				"no monitor found (run 'taskmon init' to create one)")
		}
		dir = parent
	}
}
