package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/twiced-technology-gmbh/taskmon/internal/progress"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

// Issue is one finding from a validation run.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Report is the outcome of a validation run. Validation never mutates data,
// so it is safe to run speculatively before any destructive recovery action.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// OK reports whether the stores passed structural validation.
func (r *Report) OK() bool { return len(r.Errors) == 0 }

func (r *Report) errorf(path, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(path, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the structural integrity of all three stores: valid state
// enum values, the blocker-note invariant, referential consistency between
// tasks and history, per-feature timestamp ordering, and staleness of the
// progress cache. Entries older than the retention window are reported as a
// warning; nothing is deleted.
func (s *Store) Validate(historyRetentionDays int) *Report {
	r := &Report{}

	states := s.validateStates(r)
	s.validateHistory(r, states, historyRetentionDays)
	s.validateProgress(r, states)

	return r
}

// validateStates checks task-states.json and returns the parsed document,
// or nil when it could not be read.
func (s *Store) validateStates(r *Report) *statesDoc {
	path := s.statesPath()
	data, err := os.ReadFile(path) //nolint:gosec // store path from trusted monitor dir
	if err != nil {
		if os.IsNotExist(err) {
			return &statesDoc{Tasks: map[string]map[string]*task.Task{}}
		}
		r.errorf(path, "unreadable: %v", err)
		return nil
	}

	var doc statesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		r.errorf(path, "malformed JSON: %v", err)
		return nil
	}

	for featureID, tasks := range doc.Tasks {
		for id, t := range tasks {
			if t == nil {
				r.errorf(path, "task %s/%s is null", featureID, id)
				continue
			}
			if !task.ValidID(id) {
				r.errorf(path, "task id %q in feature %s is malformed", id, featureID)
			}
			if t.ID != "" && t.ID != id {
				r.errorf(path, "task %s/%s carries mismatched id %q", featureID, id, t.ID)
			}
			if t.FeatureID != "" && t.FeatureID != featureID {
				r.errorf(path, "task %s/%s carries mismatched feature id %q", featureID, id, t.FeatureID)
			}
			if !t.State.Valid() {
				r.errorf(path, "task %s/%s has invalid state %q", featureID, id, t.State)
			}
			if t.State == task.Blocked && t.BlockerNote == "" {
				r.errorf(path, "task %s/%s is BLOCKED without a blocker note", featureID, id)
			}
			if t.State != task.Blocked && t.BlockerNote != "" {
				r.warnf(path, "task %s/%s carries a blocker note but is %s", featureID, id, t.State)
			}
		}
	}
	return &doc
}

// validateHistory checks task-history.json against the parsed states.
func (s *Store) validateHistory(r *Report, states *statesDoc, retentionDays int) {
	path := s.historyPath()
	data, err := os.ReadFile(path) //nolint:gosec // store path from trusted monitor dir
	if err != nil {
		if !os.IsNotExist(err) {
			r.errorf(path, "unreadable: %v", err)
		}
		return
	}

	var doc historyDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		r.errorf(path, "malformed JSON: %v", err)
		return
	}

	last := make(map[string]time.Time)
	stale := 0
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for i, e := range doc.Entries {
		if !e.ToState.Valid() {
			r.errorf(path, "entry %d has invalid to_state %q", i, e.ToState)
		}
		if e.FromState != "" && !e.FromState.Valid() {
			r.errorf(path, "entry %d has invalid from_state %q", i, e.FromState)
		}
		// Concurrent writers stamp entries before taking the file lock, so a
		// backwards timestamp can appear without data loss. Replay follows
		// log order, not timestamps, so this stays a warning.
		if prev, ok := last[e.FeatureID]; ok && e.Timestamp.Before(prev) {
			r.warnf(path, "entry %d for feature %s moves backwards in time", i, e.FeatureID)
		}
		last[e.FeatureID] = e.Timestamp

		if states != nil {
			tasks, ok := states.Tasks[e.FeatureID]
			if !ok {
				r.warnf(path, "entry %d references unknown feature %q", i, e.FeatureID)
			} else if _, ok := tasks[e.TaskID]; !ok {
				r.warnf(path, "entry %d references unknown task %s/%s", i, e.FeatureID, e.TaskID)
			}
		}
		if retentionDays > 0 && e.Timestamp.Before(cutoff) {
			stale++
		}
	}
	if stale > 0 {
		r.warnf(path, "%d entries exceed the %d-day retention window (run 'taskmon history prune')",
			stale, retentionDays)
	}
}

// validateProgress checks the task-progress.json cache against the states.
// Cache problems are warnings only: the cache is always re-derivable.
func (s *Store) validateProgress(r *Report, states *statesDoc) {
	path := s.progressPath()
	data, err := os.ReadFile(path) //nolint:gosec // store path from trusted monitor dir
	if err != nil {
		if !os.IsNotExist(err) {
			r.warnf(path, "unreadable: %v", err)
		}
		return
	}

	var doc progressDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		r.warnf(path, "malformed JSON (cache is re-derivable): %v", err)
		return
	}

	for featureID, snap := range doc.Features {
		sum := snap.Completed + snap.InProgress + snap.Blocked + snap.Pending
		if snap.TotalTasks != sum {
			r.warnf(path, "snapshot for %s counts %d tasks but states sum to %d",
				featureID, snap.TotalTasks, sum)
		}
		if states == nil {
			continue
		}
		if tasks, ok := states.Tasks[featureID]; ok {
			f := &task.Feature{ID: featureID, Tasks: tasks}
			fresh := progress.Compute(f, snap.ComputedAt)
			if fresh.Completed != snap.Completed || fresh.TotalTasks != snap.TotalTasks {
				r.warnf(path, "snapshot for %s is stale (run 'taskmon status' to refresh)", featureID)
			}
		} else {
			r.warnf(path, "snapshot references unknown feature %q", featureID)
		}
	}
}
