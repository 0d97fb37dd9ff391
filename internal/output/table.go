package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/taskmon/internal/progress"
	"github.com/twiced-technology-gmbh/taskmon/internal/store"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))

	// Lifecycle state colors, aligned with the dashboard palette.
	stateStyles = map[task.State]lipgloss.Style{
		task.Pending:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		task.InProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		task.Completed:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		task.Blocked:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// DisableColor strips all styling from table output.
func DisableColor() {
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	errStyle = lipgloss.NewStyle()
	warnStyle = lipgloss.NewStyle()
	stateStyles = map[task.State]lipgloss.Style{}
}

// TaskTable renders a list of tasks as a formatted table.
func TaskTable(w io.Writer, tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	const pad = 2
	idW, stateW, titleW := 6, 13, 5
	for _, t := range tasks {
		idW = max(idW, len(t.ID)+pad)
		stateW = max(stateW, len(t.State)+pad)
		titleW = max(titleW, min(len(t.Title)+pad, 50)) //nolint:mnd // max title column width
	}

	header := fmt.Sprintf("%-*s %-*s %-*s %s", idW, "ID", stateW, "STATE", titleW, "TITLE", "NOTE")
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header, " ")))

	for _, t := range tasks {
		title := t.Title
		const maxTitle = 48
		if len(title) > maxTitle {
			title = title[:maxTitle-3] + "..."
		}
		note := t.BlockerNote
		if note == "" {
			note = dimStyle.Render("--")
		}
		row := fmt.Sprintf("%-*s %s %s %s",
			idW, t.ID,
			padRight(styledState(t.State), stateW),
			padRight(title, titleW),
			note)
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// SnapshotTable renders progress snapshots as a formatted dashboard.
func SnapshotTable(w io.Writer, snaps []progress.Snapshot) {
	if len(snaps) == 0 {
		fmt.Fprintln(os.Stderr, "No features found.")
		return
	}

	header := fmt.Sprintf("%-20s %6s %6s %6s %6s %6s %8s",
		"FEATURE", "TOTAL", "DONE", "ACTIVE", "BLOCK", "PEND", "PCT")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, s := range snaps {
		const featureColW = 20
		fmt.Fprintf(w, "%s %6d %6d %6d %6d %6d %7.1f%%\n",
			padRight(s.FeatureID, featureColW),
			s.TotalTasks, s.Completed, s.InProgress, s.Blocked, s.Pending, s.Percentage)
	}
}

// TrendTable renders a trend as labeled fields.
func TrendTable(w io.Writer, tr progress.Trend) {
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(tr.FeatureID))
	printField(w, "Window", strconv.Itoa(tr.WindowDays)+"d")
	printField(w, "Completions", strconv.Itoa(tr.Completions))
	printField(w, "Velocity", fmt.Sprintf("%.2f tasks/day", tr.VelocityPerDay))
	printField(w, "Remaining", strconv.Itoa(tr.RemainingTasks))
	if tr.EstimatedCompletion != nil {
		printField(w, "Est. done", tr.EstimatedCompletion.String())
	} else {
		printField(w, "Est. done", dimStyle.Render("--"))
	}
}

// HistoryTable renders history entries, oldest first.
func HistoryTable(w io.Writer, entries []task.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No history entries.")
		return
	}

	header := fmt.Sprintf("%-17s %-20s %-10s %-24s %s", "TIME", "FEATURE", "TASK", "TRANSITION", "NOTE")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, e := range entries {
		from := string(e.FromState)
		if from == "" {
			from = "(new)"
		}
		transition := from + " -> " + string(e.ToState)
		note := e.Note
		if note == "" {
			note = dimStyle.Render("--")
		}
		fmt.Fprintf(w, "%-17s %-20s %-10s %-24s %s\n",
			e.Timestamp.Format("2006-01-02 15:04"), e.FeatureID, e.TaskID, transition, note)
	}
}

// ReportTable renders a validation report.
func ReportTable(w io.Writer, r *store.Report) {
	if r.OK() && len(r.Warnings) == 0 {
		Messagef(w, "Stores are structurally valid.")
		return
	}
	for _, issue := range r.Errors {
		fmt.Fprintf(w, "%s %s: %s\n", errStyle.Render("error"), issue.Path, issue.Message)
	}
	for _, issue := range r.Warnings {
		fmt.Fprintf(w, "%s %s: %s\n", warnStyle.Render("warning"), issue.Path, issue.Message)
	}
	Messagef(w, "%d errors, %d warnings", len(r.Errors), len(r.Warnings))
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// styledState renders a lifecycle state with its color, if styling is on.
func styledState(s task.State) string {
	if st, ok := stateStyles[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}
