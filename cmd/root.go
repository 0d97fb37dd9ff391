// Package cmd implements the taskmon CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/config"
	"github.com/twiced-technology-gmbh/taskmon/internal/discovery"
	"github.com/twiced-technology-gmbh/taskmon/internal/output"
	"github.com/twiced-technology-gmbh/taskmon/internal/state"
	"github.com/twiced-technology-gmbh/taskmon/internal/store"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

// version is set at build time via ldflags.
var version = "dev"

// Global flags.
var (
	flagJSON    bool
	flagTable   bool
	flagCompact bool
	flagDir     string
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "taskmon",
	Short: "Track task states and progress across features",
	Long: `taskmon discovers tasks from markdown files, tracks their lifecycle
states, and maintains progress, velocity, and completion forecasts per
feature. Run taskmon without arguments to open the live dashboard.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runDashboard,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagNoColor || os.Getenv("NO_COLOR") != "" {
			output.DisableColor()
		}
	},
}

func init() {
	addFormatFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "path to monitor directory")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
}

// addFormatFlags registers the shared output-format flags on a flag set.
func addFormatFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&flagJSON, "json", false, "output as JSON")
	fs.BoolVar(&flagTable, "table", false, "output as table")
	fs.BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	fs.BoolVar(&flagCompact, "oneline", false, "alias for --compact")
}

// Execute runs the root command.
func Execute() {
	_, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}

	// Handle SilentError — exit with code, no output.
	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	// Determine if JSON mode is active.
	jsonMode := flagJSON
	if !jsonMode {
		jsonMode = os.Getenv("TASKMON_OUTPUT") == "json"
	}

	if jsonMode {
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			output.JSONError(os.Stdout, cliErr.Code, cliErr.Message, cliErr.Details)
			os.Exit(cliErr.ExitCode())
		}
		// Unknown error — wrap as INTERNAL_ERROR.
		output.JSONError(os.Stdout, clierr.InternalError, err.Error(), nil)
		os.Exit(2) //nolint:mnd // exit code 2 for internal errors
	}

	// Non-JSON mode: print to stderr.
	fmt.Fprintln(os.Stderr, err)
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(1)
}

// resolveDir returns the absolute path to the monitor directory.
func resolveDir() (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	return config.FindDir(cwd)
}

// loadConfig finds and loads the monitor config.
func loadConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}
	return config.Load(dir)
}

// openStore builds the store for a loaded config.
func openStore(cfg *config.Config) *store.Store {
	return store.New(cfg.Dir(), cfg.BackupsPath(), cfg.MaxBackups)
}

// openManager builds the state manager for a loaded config.
func openManager(cfg *config.Config) *state.Manager {
	return state.New(openStore(cfg), cfg.MaxTasksPerFeature)
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}

// printWarnings writes discovery warnings to stderr.
func printWarnings(warnings []discovery.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", w.File, w.Err)
	}
}

// outputTask writes a mutated task in the selected format.
func outputTask(t *task.Task, format string, args ...interface{}) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}
	output.Messagef(os.Stdout, format, args...)
	return nil
}

// backupIfEnabled takes a best-effort backup before a mutating operation.
// A backup failure is a warning, never a blocker for the primary write.
func backupIfEnabled(cfg *config.Config, st *store.Store) {
	if !cfg.BackupEnabled {
		return
	}
	if _, err := st.Backup(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: backup failed: %v\n", err)
	}
}
