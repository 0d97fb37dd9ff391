package cmd

import (
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/workflow"
)

var startCmd = &cobra.Command{
	Use:   "start FEATURE TASK",
	Short: "Report that work on a task has begun",
	Long: `Moves a task from PENDING to IN_PROGRESS. Reporting an unseen task
creates it first, so external runners can start work without a prior
discovery pass.`,
	Args: cobra.ExactArgs(2), //nolint:mnd // feature and task id
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	t, err := workflow.New(openManager(cfg)).Start(args[0], args[1])
	if err != nil {
		return err
	}
	return outputTask(t, "Started %s/%s", args[0], t.ID)
}
