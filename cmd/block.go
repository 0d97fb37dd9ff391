package cmd

import (
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/workflow"
)

var blockCmd = &cobra.Command{
	Use:   "block FEATURE TASK",
	Short: "Report that a task cannot proceed",
	Long:  `Moves a task into BLOCKED. A reason is required and becomes the blocker note.`,
	Args:  cobra.ExactArgs(2), //nolint:mnd // feature and task id
	RunE:  runBlock,
}

func init() {
	blockCmd.Flags().String("reason", "", "why the task is blocked (required)")
	rootCmd.AddCommand(blockCmd)
}

func runBlock(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reason, _ := cmd.Flags().GetString("reason")
	if reason == "" {
		return clierr.New(clierr.MissingBlockerNote, "block requires --reason")
	}

	t, err := workflow.New(openManager(cfg)).Block(args[0], args[1], reason)
	if err != nil {
		return err
	}
	return outputTask(t, "Blocked %s/%s: %s", args[0], t.ID, reason)
}
