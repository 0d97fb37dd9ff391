// Package config handles monitor configuration.
package config

const (
	// DefaultDir is the default monitor directory name.
	DefaultDir = "taskmon"
	// DefaultFeaturesDir is the subdirectory holding per-feature markdown task files.
	DefaultFeaturesDir = "features"
	// DefaultBackupsDir is the subdirectory holding rotated store backups.
	DefaultBackupsDir = "backups"

	// ConfigFileName is the name of the config file within the monitor directory.
	ConfigFileName = "monitor-config.json"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 2

	// DefaultHistoryRetentionDays is how long history entries are kept before
	// an explicit prune may remove them.
	DefaultHistoryRetentionDays = 90
	// DefaultMaxTasksPerFeature bounds discovery and implicit task creation.
	DefaultMaxTasksPerFeature = 1000
	// DefaultMaxBackups is how many rotated backup sets are retained.
	DefaultMaxBackups = 5
	// DefaultTrendWindowDays is the trailing window for velocity calculations.
	DefaultTrendWindowDays = 7
)
