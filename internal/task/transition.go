package task

import (
	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
)

// transitions is the allowed state-transition graph. COMPLETED is terminal.
var transitions = map[State][]State{
	Pending:    {InProgress, Blocked},
	InProgress: {Completed, Blocked},
	Blocked:    {InProgress, Pending},
	Completed:  {},
}

// CanTransition reports whether moving from one state to another is allowed.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks a proposed transition against the graph and the
// blocker-note rule. The task itself is not modified.
func ValidateTransition(t *Task, to State, note string) error {
	if !to.Valid() {
		return clierr.Newf(clierr.InvalidState, "invalid state %q", to).
			WithDetails(map[string]any{"state": to, "allowed": States})
	}
	if !CanTransition(t.State, to) {
		return clierr.Newf(clierr.InvalidTransition,
			"cannot transition task %s from %s to %s", t.ID, t.State, to).
			WithDetails(map[string]any{
				"task_id": t.ID,
				"from":    t.State,
				"to":      to,
				"allowed": transitions[t.State],
			})
	}
	if to == Blocked && note == "" {
		return clierr.Newf(clierr.MissingBlockerNote,
			"blocking task %s requires a reason", t.ID).
			WithDetails(map[string]any{"task_id": t.ID})
	}
	return nil
}
