package output

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/twiced-technology-gmbh/taskmon/internal/progress"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

// TaskCompact renders a list of tasks in one-line-per-record compact format.
func TaskCompact(w io.Writer, tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	for _, t := range tasks {
		fmt.Fprintln(w, formatTaskLine(t))
	}
}

// SnapshotCompact renders progress snapshots in compact format.
func SnapshotCompact(w io.Writer, snaps []progress.Snapshot) {
	for _, s := range snaps {
		line := s.FeatureID + ": " + strconv.Itoa(s.Completed) + "/" + strconv.Itoa(s.TotalTasks) +
			fmt.Sprintf(" (%.1f%%)", s.Percentage)
		if s.InProgress > 0 {
			line += " " + strconv.Itoa(s.InProgress) + " active"
		}
		if s.Blocked > 0 {
			line += " " + strconv.Itoa(s.Blocked) + " blocked"
		}
		fmt.Fprintln(w, line)
	}
}

// HistoryCompact renders history entries one per line, oldest first.
func HistoryCompact(w io.Writer, entries []task.HistoryEntry) {
	for _, e := range entries {
		from := string(e.FromState)
		if from == "" {
			from = "(new)"
		}
		line := e.Timestamp.Format("2006-01-02T15:04:05") + " " + e.FeatureID + "/" + e.TaskID +
			" " + from + "->" + string(e.ToState)
		if e.Note != "" {
			line += " (" + e.Note + ")"
		}
		fmt.Fprintln(w, line)
	}
}

// formatTaskLine builds the one-line representation of a task.
func formatTaskLine(t *task.Task) string {
	line := t.ID + " [" + string(t.State) + "] " + t.Title
	if t.BlockerNote != "" {
		line += " (" + t.BlockerNote + ")"
	}
	if t.ExecutionTime != nil {
		line += fmt.Sprintf(" took:%.1fs", *t.ExecutionTime)
	}
	return line
}
