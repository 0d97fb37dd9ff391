package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/config"
	"github.com/twiced-technology-gmbh/taskmon/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify monitor configuration",
	Long:  `View the full configuration, get a specific key, or set a writable value.`,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configAccessor describes how to get and set a config key.
type configAccessor struct {
	get      func(*config.Config) any
	set      func(*config.Config, string) error
	writable bool
}

func configAccessors() map[string]configAccessor {
	return map[string]configAccessor{
		"version": {
			get: func(c *config.Config) any { return c.Version },
		},
		"auto_discovery": {
			get: func(c *config.Config) any { return c.AutoDiscovery },
			set: func(c *config.Config, v string) error {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput,
						"invalid auto_discovery %q: must be true or false", v)
				}
				c.AutoDiscovery = b
				return nil
			},
			writable: true,
		},
		"history_retention_days": {
			get: func(c *config.Config) any { return c.HistoryRetentionDays },
			set: setIntKey("history_retention_days", func(c *config.Config, n int) {
				c.HistoryRetentionDays = n
			}),
			writable: true,
		},
		"max_tasks_per_feature": {
			get: func(c *config.Config) any { return c.MaxTasksPerFeature },
			set: setIntKey("max_tasks_per_feature", func(c *config.Config, n int) {
				c.MaxTasksPerFeature = n
			}),
			writable: true,
		},
		"backup_enabled": {
			get: func(c *config.Config) any { return c.BackupEnabled },
			set: func(c *config.Config, v string) error {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput,
						"invalid backup_enabled %q: must be true or false", v)
				}
				c.BackupEnabled = b
				return nil
			},
			writable: true,
		},
		"max_backups": {
			get: func(c *config.Config) any { return c.MaxBackups },
			set: setIntKey("max_backups", func(c *config.Config, n int) {
				c.MaxBackups = n
			}),
			writable: true,
		},
	}
}

// setIntKey builds a setter for an integer config key.
func setIntKey(key string, apply func(*config.Config, int)) func(*config.Config, string) error {
	return func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return clierr.Newf(clierr.InvalidInput,
				"invalid %s %q: must be an integer", key, v)
		}
		apply(c, n)
		return nil // validation handles range check
	}
}

// allConfigKeys returns config keys in display order.
func allConfigKeys() []string {
	return []string{
		"version",
		"auto_discovery",
		"history_retention_days",
		"max_tasks_per_feature",
		"backup_enabled",
		"max_backups",
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	accessors := configAccessors()

	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(accessors))
		for _, key := range allConfigKeys() {
			m[key] = accessors[key].get(cfg)
		}
		return output.JSON(os.Stdout, m)
	}

	// Table mode: key-value pairs.
	for _, key := range allConfigKeys() {
		fmt.Fprintf(os.Stdout, "%-24s %v\n", key, accessors[key].get(cfg))
	}
	return nil
}

func runConfigGet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key := args[0]
	acc, ok := configAccessors()[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}

	val := acc.get(cfg)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, val)
	}

	fmt.Fprintln(os.Stdout, val)
	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	acc, ok := configAccessors()[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}
	if !acc.writable {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only", key)
	}

	if err := acc.set(cfg, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"key": key, "value": acc.get(cfg)})
	}

	output.Messagef(os.Stdout, "Set %s = %v", key, acc.get(cfg))
	return nil
}
