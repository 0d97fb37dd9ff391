package cmd

import (
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/workflow"
)

var completeCmd = &cobra.Command{
	Use:   "complete FEATURE TASK",
	Short: "Report that a task finished",
	Long: `Moves a task from IN_PROGRESS to COMPLETED. COMPLETED is terminal;
use --took to record the measured execution time in seconds.`,
	Args: cobra.ExactArgs(2), //nolint:mnd // feature and task id
	RunE: runComplete,
}

func init() {
	completeCmd.Flags().Float64("took", -1, "execution time in seconds")
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	took, _ := cmd.Flags().GetFloat64("took")
	t, err := workflow.New(openManager(cfg)).Complete(args[0], args[1], took)
	if err != nil {
		return err
	}
	return outputTask(t, "Completed %s/%s", args[0], t.ID)
}
