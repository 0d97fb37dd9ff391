package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

func declaredResult(tasks ...*Declared) *Result {
	res := &Result{Tasks: make(map[string]*Declared)}
	for _, d := range tasks {
		res.Tasks[d.ID] = d
	}
	return res
}

func TestMergeCreatesNewTasks(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f := task.NewFeature("auth")

	out := Merge(f, declaredResult(
		&Declared{ID: "T001", Title: "login", State: task.Pending, File: "a.md"},
		&Declared{ID: "T002", Title: "sessions", State: task.Completed, File: "a.md"},
	), 100, now)

	assert.Equal(t, 2, out.Created)
	assert.Equal(t, 0, out.Updated)
	require.Len(t, out.Entries, 2)

	// Entries are ordered by task id and record creation with an empty
	// from state.
	assert.Equal(t, "T001", out.Entries[0].TaskID)
	assert.Equal(t, task.State(""), out.Entries[0].FromState)
	assert.Equal(t, task.Pending, out.Entries[0].ToState)
	assert.Equal(t, task.Completed, out.Entries[1].ToState)

	created := f.Get("T002")
	require.NotNil(t, created)
	assert.Equal(t, "auth", created.FeatureID)
	assert.Equal(t, now, created.LastUpdated)
}

func TestMergeStalePendingNeverReverts(t *testing.T) {
	now := time.Now()
	f := task.NewFeature("auth")
	f.Put(&task.Task{ID: "T001", Title: "login", State: task.InProgress})

	out := Merge(f, declaredResult(
		&Declared{ID: "T001", Title: "login", State: task.Pending, File: "a.md"},
	), 100, now)

	assert.Equal(t, 0, out.Created)
	assert.Equal(t, 0, out.Updated)
	assert.Empty(t, out.Entries)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, task.InProgress, f.Get("T001").State)
}

func TestMergeAppliesLegalTransition(t *testing.T) {
	now := time.Now()
	f := task.NewFeature("auth")
	f.Put(&task.Task{ID: "T001", Title: "login", State: task.InProgress})

	out := Merge(f, declaredResult(
		&Declared{ID: "T001", Title: "login", State: task.Completed, File: "a.md"},
	), 100, now)

	assert.Equal(t, 1, out.Updated)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, task.InProgress, out.Entries[0].FromState)
	assert.Equal(t, task.Completed, out.Entries[0].ToState)
	assert.Equal(t, task.Completed, f.Get("T001").State)
}

func TestMergeIllegalTransitionKeepsStored(t *testing.T) {
	now := time.Now()
	f := task.NewFeature("auth")
	f.Put(&task.Task{ID: "T001", Title: "login", State: task.Completed})

	out := Merge(f, declaredResult(
		&Declared{ID: "T001", Title: "login", State: task.InProgress, File: "a.md"},
	), 100, now)

	assert.Equal(t, 0, out.Updated)
	assert.Empty(t, out.Entries)
	require.Len(t, out.Warnings, 1)
	assert.ErrorContains(t, out.Warnings[0].Err, "keeping stored state")
	assert.Equal(t, task.Completed, f.Get("T001").State)
}

func TestMergeBlockedCarriesNote(t *testing.T) {
	now := time.Now()
	f := task.NewFeature("auth")
	f.Put(&task.Task{ID: "T001", Title: "login", State: task.InProgress})

	out := Merge(f, declaredResult(
		&Declared{ID: "T001", State: task.Blocked, BlockerNote: "cert expired", File: "a.md"},
	), 100, now)

	require.Equal(t, 1, out.Updated)
	got := f.Get("T001")
	assert.Equal(t, task.Blocked, got.State)
	assert.Equal(t, "cert expired", got.BlockerNote)
}

func TestMergeIdempotent(t *testing.T) {
	now := time.Now()
	f := task.NewFeature("auth")
	res := declaredResult(
		&Declared{ID: "T001", Title: "login", State: task.Pending, File: "a.md"},
		&Declared{ID: "T002", Title: "sessions", State: task.InProgress, File: "a.md"},
	)

	first := Merge(f, res, 100, now)
	assert.Equal(t, 2, first.Created)

	second := Merge(f, res, 100, now.Add(time.Minute))
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Updated)
	assert.Empty(t, second.Entries)
	assert.Empty(t, second.Warnings)
}

func TestMergeCapacity(t *testing.T) {
	now := time.Now()
	f := task.NewFeature("auth")
	f.Put(&task.Task{ID: "T001", State: task.Pending})

	out := Merge(f, declaredResult(
		&Declared{ID: "T002", State: task.Pending, File: "a.md"},
	), 1, now)

	assert.Equal(t, 0, out.Created)
	require.Len(t, out.Warnings, 1)
	assert.Nil(t, f.Get("T002"))
}
