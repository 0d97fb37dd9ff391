package discovery

import (
	"fmt"
	"sort"
	"time"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

// Outcome is the result of merging a scan into stored feature state.
type Outcome struct {
	Feature  *task.Feature
	Entries  []task.HistoryEntry
	Warnings []Warning
	Created  int
	Updated  int
}

// Merge folds scanned tasks into the stored feature without ever destroying
// externally reported progress: a stale PENDING read from a file never
// reverts a stored IN_PROGRESS or COMPLETED task, and a declared state is
// only applied when the transition is legal. Merging is idempotent.
func Merge(f *task.Feature, res *Result, maxTasks int, now time.Time) *Outcome {
	out := &Outcome{Feature: f}

	ids := make([]string, 0, len(res.Tasks))
	for id := range res.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		d := res.Tasks[id]
		existing := f.Get(id)
		if existing == nil {
			if len(f.Tasks) >= maxTasks {
				out.Warnings = append(out.Warnings, Warning{
					File: d.File,
					Err: clierr.Newf(clierr.CapacityExceeded,
						"feature %s exceeds %d tasks; %s not added", f.ID, maxTasks, id).
						WithDetails(map[string]any{"feature_id": f.ID, "task_id": id, "max_tasks": maxTasks}),
				})
				continue
			}
			t := &task.Task{
				ID:          d.ID,
				Title:       d.Title,
				Description: d.Description,
				State:       d.State,
				BlockerNote: d.BlockerNote,
				LastUpdated: now,
			}
			f.Put(t)
			out.Entries = append(out.Entries,
				task.NewHistoryEntry(f.ID, t.ID, "", t.State, "discovered in "+d.File, now))
			out.Created++
			continue
		}

		// Refresh descriptive fields from the file; they are not state.
		if d.Title != "" && d.Title != d.ID {
			existing.Title = d.Title
		}
		if d.Description != "" {
			existing.Description = d.Description
		}

		switch {
		case existing.State == d.State:
			// Unchanged; re-scan stays idempotent.
		case d.State == task.Pending:
			// Stale file read; stored progress wins.
		case task.CanTransition(existing.State, d.State):
			from := existing.State
			existing.State = d.State
			existing.LastUpdated = now
			if d.State == task.Blocked {
				existing.BlockerNote = d.BlockerNote
			} else {
				existing.BlockerNote = ""
			}
			out.Entries = append(out.Entries,
				task.NewHistoryEntry(f.ID, existing.ID, from, d.State, "discovered in "+d.File, now))
			out.Updated++
		default:
			out.Warnings = append(out.Warnings, Warning{
				File: d.File,
				Err: fmt.Errorf("task %s declares %s but is %s in the store; keeping stored state",
					id, d.State, existing.State),
			})
		}
	}

	return out
}
