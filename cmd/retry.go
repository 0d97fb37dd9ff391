package cmd

import (
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/workflow"
)

var retryCmd = &cobra.Command{
	Use:   "retry FEATURE TASK",
	Short: "Resume a blocked task",
	Long:  `Moves a BLOCKED task back to IN_PROGRESS and clears its blocker note.`,
	Args:  cobra.ExactArgs(2), //nolint:mnd // feature and task id
	RunE:  runRetry,
}

var requeueCmd = &cobra.Command{
	Use:   "requeue FEATURE TASK",
	Short: "Return a blocked task to the queue",
	Long:  `Moves a BLOCKED task back to PENDING and clears its blocker note.`,
	Args:  cobra.ExactArgs(2), //nolint:mnd // feature and task id
	RunE:  runRequeue,
}

func init() {
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(requeueCmd)
}

func runRetry(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	t, err := workflow.New(openManager(cfg)).Retry(args[0], args[1])
	if err != nil {
		return err
	}
	return outputTask(t, "Retrying %s/%s", args[0], t.ID)
}

func runRequeue(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	t, err := workflow.New(openManager(cfg)).Requeue(args[0], args[1])
	if err != nil {
		return err
	}
	return outputTask(t, "Requeued %s/%s", args[0], t.ID)
}
