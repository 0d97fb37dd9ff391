package cmd

import (
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskmon/internal/output"
	"github.com/twiced-technology-gmbh/taskmon/internal/progress"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

var statusCmd = &cobra.Command{
	Use:   "status [FEATURE]",
	Short: "Show progress for one feature or all features",
	Long: `Computes fresh task counts and completion percentage from stored
state and refreshes the progress cache. Without a feature name, every
tracked feature is listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Bool("tasks", false, "list individual tasks (single feature only)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr := openManager(cfg)
	st := mgr.Store()

	var features map[string]*task.Feature
	if len(args) == 1 {
		if cfg.AutoDiscovery {
			autoDiscover(cfg, args[0])
		}
		f, err := st.Load(args[0])
		if err != nil {
			return err
		}
		features = map[string]*task.Feature{f.ID: f}
	} else {
		features, err = st.LoadAll()
		if err != nil {
			return err
		}
	}

	now := time.Now()
	snaps := make([]progress.Snapshot, 0, len(features))
	for _, f := range features {
		snap := progress.Compute(f, now)
		if err := st.SaveSnapshot(snap); err != nil {
			return err
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].FeatureID < snaps[j].FeatureID })

	showTasks, _ := cmd.Flags().GetBool("tasks")
	if showTasks && len(args) == 1 {
		return statusTasks(features[args[0]], snaps[0])
	}

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, snaps)
	case output.FormatCompact:
		output.SnapshotCompact(os.Stdout, snaps)
	default:
		output.SnapshotTable(os.Stdout, snaps)
	}
	return nil
}

// statusTasks prints the per-task breakdown for a single feature.
func statusTasks(f *task.Feature, snap progress.Snapshot) error {
	tasks := make([]*task.Task, 0, len(f.Tasks))
	for _, t := range f.Tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, map[string]any{
			"snapshot": snap,
			"tasks":    tasks,
		})
	case output.FormatCompact:
		output.TaskCompact(os.Stdout, tasks)
	default:
		output.SnapshotTable(os.Stdout, []progress.Snapshot{snap})
		output.TaskTable(os.Stdout, tasks)
	}
	return nil
}
