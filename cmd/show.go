package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/output"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

var showCmd = &cobra.Command{
	Use:   "show FEATURE TASK",
	Short: "Show one task's details",
	Long:  `Displays the stored state of a single task including its blocker note and execution time.`,
	Args:  cobra.ExactArgs(2), //nolint:mnd // feature and task id
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(_ *cobra.Command, args []string) error {
	if err := task.ValidateID(args[1]); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := openStore(cfg).Load(args[0])
	if err != nil {
		return err
	}

	t := f.Get(args[1])
	if t == nil {
		return clierr.Newf(clierr.TaskNotFound, "task %s not found in feature %s", args[1], args[0]).
			WithDetails(map[string]any{"feature_id": args[0], "task_id": args[1]})
	}

	format := outputFormat()
	if format == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}
	if format == output.FormatCompact {
		output.TaskCompact(os.Stdout, []*task.Task{t})
		return nil
	}

	output.TaskTable(os.Stdout, []*task.Task{t})
	if t.Description != "" {
		output.Messagef(os.Stdout, "\n%s", t.Description)
	}
	return nil
}
