package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/config"
	"github.com/twiced-technology-gmbh/taskmon/internal/output"
	"github.com/twiced-technology-gmbh/taskmon/internal/progress"
)

var trendCmd = &cobra.Command{
	Use:   "trend FEATURE",
	Short: "Show completion velocity and a forecast",
	Long: `Counts completions within the trailing window, derives a per-day
velocity, and estimates a completion date for the remaining tasks. No
forecast is shown while velocity is zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrend,
}

func init() {
	trendCmd.Flags().Int("window", config.DefaultTrendWindowDays, "trailing window in days")
	rootCmd.AddCommand(trendCmd)
}

func runTrend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.AutoDiscovery {
		autoDiscover(cfg, args[0])
	}
	st := openStore(cfg)

	f, err := st.Load(args[0])
	if err != nil {
		return err
	}
	entries, err := st.History(args[0], 0)
	if err != nil {
		return err
	}

	window, _ := cmd.Flags().GetInt("window")
	tr := progress.ComputeTrend(f, entries, window, time.Now())

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, tr)
	}
	output.TrendTable(os.Stdout, tr)
	return nil
}
