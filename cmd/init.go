package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/config"
	"github.com/twiced-technology-gmbh/taskmon/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new monitor",
	Long:  `Creates a monitor directory with monitor-config.json and a features/ subdirectory.`,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	dir := flagDir
	if dir == "" {
		dir = config.DefaultDir
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	// Check if already initialized.
	if _, err := os.Stat(filepath.Join(absDir, config.ConfigFileName)); err == nil {
		return clierr.Newf(clierr.MonitorExists, "monitor already initialized in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	cfg, err := config.Init(absDir)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{
			"status":   "initialized",
			"dir":      absDir,
			"config":   cfg.ConfigPath(),
			"features": cfg.FeaturesPath(),
		})
	}

	output.Messagef(os.Stdout, "Initialized monitor in %s", absDir)
	output.Messagef(os.Stdout, "  Config:   %s", cfg.ConfigPath())
	output.Messagef(os.Stdout, "  Features: %s", cfg.FeaturesPath())
	output.Messagef(os.Stdout, "  Hint:     Add markdown task files under features/<name>/ and run 'taskmon discover <name>'")
	return nil
}
