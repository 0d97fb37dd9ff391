// Package state owns the task state-transition rules. All writes to the
// stores flow through Manager, either from workflow events or from
// discovery merges; nothing else mutates task state.
package state

import (
	"errors"
	"time"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/discovery"
	"github.com/twiced-technology-gmbh/taskmon/internal/store"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

// Manager validates and applies state transitions, delegating durability to
// the store and emitting one history entry per transition.
type Manager struct {
	store    *store.Store
	maxTasks int
	now      func() time.Time
}

// New creates a Manager bounded by maxTasks per feature.
func New(st *store.Store, maxTasks int) *Manager {
	return &Manager{store: st, maxTasks: maxTasks, now: time.Now}
}

// SetNow overrides the clock (for testing).
func (m *Manager) SetNow(fn func() time.Time) {
	m.now = fn
}

// Store returns the underlying store for read operations.
func (m *Manager) Store() *store.Store { return m.store }

// ApplyOptions carries the optional parts of a transition.
type ApplyOptions struct {
	// Note annotates the history entry; required when transitioning
	// into BLOCKED (it becomes the blocker note).
	Note string
	// ExecutionTime is the measured duration in seconds, recorded when
	// transitioning into COMPLETED.
	ExecutionTime *float64
}

// Apply validates the transition against the allowed graph and, on success,
// updates the task and appends a history entry as a single atomic unit.
// A rejected transition mutates nothing and produces no history entry.
// Reporting an event for an unseen task or feature creates it in PENDING
// first, then applies the transition from there.
func (m *Manager) Apply(featureID, taskID string, to task.State, opts ApplyOptions) (*task.Task, error) {
	if err := task.ValidateID(taskID); err != nil {
		return nil, err
	}

	now := m.now()
	f, _, err := m.loadOrCreate(featureID)
	if err != nil {
		return nil, err
	}

	var entries []task.HistoryEntry

	t := f.Get(taskID)
	if t == nil {
		if len(f.Tasks) >= m.maxTasks {
			return nil, clierr.Newf(clierr.CapacityExceeded,
				"feature %s already holds %d tasks", featureID, m.maxTasks).
				WithDetails(map[string]any{"feature_id": featureID, "max_tasks": m.maxTasks})
		}
		t = &task.Task{ID: taskID, Title: taskID, State: task.Pending, LastUpdated: now}
		f.Put(t)
		entries = append(entries, task.NewHistoryEntry(featureID, taskID, "", task.Pending, "created on first report", now))
	}

	if err := task.ValidateTransition(t, to, opts.Note); err != nil {
		return nil, err
	}

	from := t.State
	t.State = to
	t.LastUpdated = now
	if to == task.Blocked {
		t.BlockerNote = opts.Note
	} else {
		t.BlockerNote = ""
	}
	if to == task.Completed && opts.ExecutionTime != nil {
		t.ExecutionTime = opts.ExecutionTime
	}
	entries = append(entries, task.NewHistoryEntry(featureID, taskID, from, to, opts.Note, now))

	if err := m.store.Commit(f, entries); err != nil {
		return nil, err
	}
	return t, nil
}

// Discover scans a feature's markdown directory and merges the result into
// stored state, persisting any changes with their history entries.
func (m *Manager) Discover(featureID, dir string) (*discovery.Outcome, error) {
	res, err := discovery.Scan(dir, m.maxTasks)
	if err != nil {
		return nil, err
	}

	f, existed, err := m.loadOrCreate(featureID)
	if err != nil {
		return nil, err
	}

	out := discovery.Merge(f, res, m.maxTasks, m.now())
	out.Warnings = append(res.Warnings, out.Warnings...)

	if out.Created > 0 || out.Updated > 0 || !existed {
		if err := m.store.Commit(f, out.Entries); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// loadOrCreate returns the stored feature, or a fresh empty one when the
// feature has never been persisted.
func (m *Manager) loadOrCreate(featureID string) (*task.Feature, bool, error) {
	f, err := m.store.Load(featureID)
	if err == nil {
		return f, true, nil
	}
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) && cliErr.Code == clierr.FeatureNotFound {
		return task.NewFeature(featureID), false, nil
	}
	return nil, false, err
}
