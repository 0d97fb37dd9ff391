package workflow

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/taskmon/internal/state"
	"github.com/twiced-technology-gmbh/taskmon/internal/store"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

func newTestTracker(t *testing.T) (*Tracker, *state.Manager) {
	t.Helper()
	dir := t.TempDir()
	mgr := state.New(store.New(dir, filepath.Join(dir, "backups"), 5), 100)
	return New(mgr), mgr
}

func TestStartCompleteCycle(t *testing.T) {
	tr, mgr := newTestTracker(t)

	tk, err := tr.Start("auth", "T001")
	require.NoError(t, err)
	assert.Equal(t, task.InProgress, tk.State)

	tk, err = tr.Complete("auth", "T001", 42.5)
	require.NoError(t, err)
	assert.Equal(t, task.Completed, tk.State)
	require.NotNil(t, tk.ExecutionTime)
	assert.Equal(t, 42.5, *tk.ExecutionTime)

	entries, err := mgr.Store().History("auth", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3) // creation, start, complete
}

func TestCompleteNegativeTimeOmitted(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.Start("auth", "T001")
	require.NoError(t, err)

	tk, err := tr.Complete("auth", "T001", -1)
	require.NoError(t, err)
	assert.Nil(t, tk.ExecutionTime)
}

func TestBlockRetryRequeue(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.Start("auth", "T001")
	require.NoError(t, err)

	tk, err := tr.Block("auth", "T001", "upstream API down")
	require.NoError(t, err)
	assert.Equal(t, task.Blocked, tk.State)
	assert.Equal(t, "upstream API down", tk.BlockerNote)

	tk, err = tr.Retry("auth", "T001")
	require.NoError(t, err)
	assert.Equal(t, task.InProgress, tk.State)
	assert.Empty(t, tk.BlockerNote)

	// Block again, then hand the task back to the queue.
	_, err = tr.Block("auth", "T001", "still down")
	require.NoError(t, err)
	tk, err = tr.Requeue("auth", "T001")
	require.NoError(t, err)
	assert.Equal(t, task.Pending, tk.State)
	assert.Empty(t, tk.BlockerNote)
}

func TestBlockWithoutReason(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.Start("auth", "T001")
	require.NoError(t, err)

	_, err = tr.Block("auth", "T001", "")
	require.Error(t, err)
}

func TestRunSuccessRecordsElapsed(t *testing.T) {
	tr, mgr := newTestTracker(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	calls := 0
	tr.SetNow(func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(90 * time.Second)
	})

	err := tr.Run("auth", "T001", func() error { return nil })
	require.NoError(t, err)

	f, err := mgr.Store().Load("auth")
	require.NoError(t, err)
	tk := f.Get("T001")
	assert.Equal(t, task.Completed, tk.State)
	require.NotNil(t, tk.ExecutionTime)
	assert.InDelta(t, 90.0, *tk.ExecutionTime, 0.0001)
}

func TestRunFailureBlocksAndReturnsOriginalError(t *testing.T) {
	tr, mgr := newTestTracker(t)

	boom := errors.New("connection refused")
	err := tr.Run("auth", "T001", func() error { return boom })
	require.ErrorIs(t, err, boom)

	f, err := mgr.Store().Load("auth")
	require.NoError(t, err)
	tk := f.Get("T001")
	assert.Equal(t, task.Blocked, tk.State)
	assert.Equal(t, "connection refused", tk.BlockerNote)
}

func TestRunStartFailureSkipsWork(t *testing.T) {
	tr, _ := newTestTracker(t)

	// COMPLETED is terminal, so starting again must fail before fn runs.
	_, err := tr.Start("auth", "T001")
	require.NoError(t, err)
	_, err = tr.Complete("auth", "T001", -1)
	require.NoError(t, err)

	ran := false
	err = tr.Run("auth", "T001", func() error { ran = true; return nil })
	require.Error(t, err)
	assert.False(t, ran)
}
