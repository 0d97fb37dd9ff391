// Package workflow is the instrumentation surface external task-execution
// code calls to report start, complete, and block events. It never bypasses
// the state manager's validation.
package workflow

import (
	"time"

	"github.com/twiced-technology-gmbh/taskmon/internal/state"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

// Tracker reports task execution events into the state manager.
type Tracker struct {
	mgr *state.Manager
	now func() time.Time
}

// New creates a Tracker on top of a state manager.
func New(mgr *state.Manager) *Tracker {
	return &Tracker{mgr: mgr, now: time.Now}
}

// SetNow overrides the clock used for elapsed-time measurement (for testing).
func (tr *Tracker) SetNow(fn func() time.Time) {
	tr.now = fn
}

// Start reports that work on a task has begun.
func (tr *Tracker) Start(featureID, taskID string) (*task.Task, error) {
	return tr.mgr.Apply(featureID, taskID, task.InProgress, state.ApplyOptions{})
}

// Complete reports that a task finished. A non-negative executionTime (in
// seconds) is recorded on the task; pass a negative value to omit it.
func (tr *Tracker) Complete(featureID, taskID string, executionTime float64) (*task.Task, error) {
	opts := state.ApplyOptions{}
	if executionTime >= 0 {
		opts.ExecutionTime = &executionTime
	}
	return tr.mgr.Apply(featureID, taskID, task.Completed, opts)
}

// Block reports that a task cannot proceed. The reason is mandatory and
// becomes the blocker note.
func (tr *Tracker) Block(featureID, taskID, reason string) (*task.Task, error) {
	return tr.mgr.Apply(featureID, taskID, task.Blocked, state.ApplyOptions{Note: reason})
}

// Retry moves a blocked task back into IN_PROGRESS.
func (tr *Tracker) Retry(featureID, taskID string) (*task.Task, error) {
	return tr.mgr.Apply(featureID, taskID, task.InProgress, state.ApplyOptions{Note: "retry after block"})
}

// Requeue moves a blocked task back to PENDING.
func (tr *Tracker) Requeue(featureID, taskID string) (*task.Task, error) {
	return tr.mgr.Apply(featureID, taskID, task.Pending, state.ApplyOptions{Note: "requeued after block"})
}

// Run wraps one unit of work: it starts the task, executes fn, and reports
// the outcome. On success the measured elapsed time is recorded with the
// completion; on failure the task is blocked with the failure's message and
// the original error is returned to the caller.
func (tr *Tracker) Run(featureID, taskID string, fn func() error) error {
	if _, err := tr.Start(featureID, taskID); err != nil {
		return err
	}

	began := tr.now()
	if err := fn(); err != nil {
		// Best-effort: the work's failure is what the caller must see,
		// even if recording the block fails too.
		_, _ = tr.Block(featureID, taskID, err.Error())
		return err
	}

	elapsed := tr.now().Sub(began).Seconds()
	_, err := tr.Complete(featureID, taskID, elapsed)
	return err
}
