// Package task defines the tracked task model and its lifecycle states.
package task

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
)

// State is the lifecycle state of a tracked task.
type State string

// Lifecycle states.
const (
	Pending    State = "PENDING"
	InProgress State = "IN_PROGRESS"
	Completed  State = "COMPLETED"
	Blocked    State = "BLOCKED"
)

// States lists all valid lifecycle states in progression order.
var States = []State{Pending, InProgress, Completed, Blocked}

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	switch s {
	case Pending, InProgress, Completed, Blocked:
		return true
	}
	return false
}

// ParseState converts a string into a State.
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.Valid() {
		return "", clierr.Newf(clierr.InvalidState, "invalid state %q", s).
			WithDetails(map[string]any{
				"state":   s,
				"allowed": States,
			})
	}
	return st, nil
}

// idRe matches the two task id forms: global (T001) and
// service-scoped (API-T001).
var idRe = regexp.MustCompile(`^(?:[A-Z][A-Z0-9]*-)?T\d{1,4}$`)

// ValidID reports whether id is a well-formed task id.
func ValidID(id string) bool {
	return idRe.MatchString(id)
}

// ValidateID returns a structured error for a malformed task id.
func ValidateID(id string) error {
	if ValidID(id) {
		return nil
	}
	return clierr.Newf(clierr.InvalidTaskID, "invalid task ID %q (expected T### or PREFIX-T###)", id).
		WithDetails(map[string]any{"id": id})
}

// Task represents one tracked unit of work within a feature.
type Task struct {
	ID          string    `json:"id"`
	FeatureID   string    `json:"feature_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	State       State     `json:"state"`
	LastUpdated time.Time `json:"last_updated"`

	// ExecutionTime is the measured duration in seconds, recorded when the
	// task transitions into COMPLETED.
	ExecutionTime *float64 `json:"execution_time,omitempty"`

	// BlockerNote is non-empty iff State is BLOCKED.
	BlockerNote string `json:"blocker_note,omitempty"`
}

// Feature is a named unit of work owning a set of tasks keyed by id.
type Feature struct {
	ID    string           `json:"feature_id"`
	Tasks map[string]*Task `json:"tasks"`
}

// NewFeature creates an empty feature.
func NewFeature(id string) *Feature {
	return &Feature{ID: id, Tasks: make(map[string]*Task)}
}

// Get returns the task with the given id, or nil.
func (f *Feature) Get(id string) *Task {
	if f == nil || f.Tasks == nil {
		return nil
	}
	return f.Tasks[id]
}

// Put inserts or replaces a task, stamping its owning feature id.
func (f *Feature) Put(t *Task) {
	if f.Tasks == nil {
		f.Tasks = make(map[string]*Task)
	}
	t.FeatureID = f.ID
	f.Tasks[t.ID] = t
}

// HistoryEntry is an immutable record of one state transition.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	FeatureID string    `json:"feature_id"`
	TaskID    string    `json:"task_id"`
	FromState State     `json:"from_state"`
	ToState   State     `json:"to_state"`
	Note      string    `json:"note,omitempty"`
}

// NewHistoryEntry builds a history entry for one transition. The from state
// is empty for newly created tasks.
func NewHistoryEntry(featureID, taskID string, from, to State, note string, ts time.Time) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: ts,
		FeatureID: featureID,
		TaskID:    taskID,
		FromState: from,
		ToState:   to,
		Note:      note,
	}
}
