package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history [FEATURE]",
	Short: "Show the transition history",
	Long: `Lists recorded state transitions, newest last. Without a feature
name the full log across all features is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete history entries older than the retention window",
	Long: `Removes entries whose timestamp falls outside history_retention_days.
Pruning is destructive and only runs with --confirm.`,
	Args: cobra.NoArgs,
	RunE: runHistoryPrune,
}

func init() {
	historyCmd.Flags().Int("limit", 0, "show only the most recent N entries")
	historyPruneCmd.Flags().Bool("confirm", false, "confirm deletion of old entries")
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st := openStore(cfg)

	featureID := ""
	if len(args) == 1 {
		featureID = args[0]
	}
	limit, _ := cmd.Flags().GetInt("limit")

	entries, err := st.History(featureID, limit)
	if err != nil {
		return err
	}

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, entries)
	case output.FormatCompact:
		output.HistoryCompact(os.Stdout, entries)
	default:
		output.HistoryTable(os.Stdout, entries)
	}
	return nil
}

func runHistoryPrune(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st := openStore(cfg)

	confirm, _ := cmd.Flags().GetBool("confirm")
	if confirm {
		backupIfEnabled(cfg, st)
	}

	cutoff := time.Now().AddDate(0, 0, -cfg.HistoryRetentionDays)
	removed, err := st.PruneHistory(cutoff, confirm)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"removed": removed,
			"cutoff":  cutoff,
		})
	}
	output.Messagef(os.Stdout, "Pruned %d history entries older than %s",
		removed, cutoff.Format("2006-01-02"))
	return nil
}
