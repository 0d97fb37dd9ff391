package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/progress"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(dir, filepath.Join(dir, "backups"), 5)
}

func seedFeature(t *testing.T, s *Store, featureID string, states ...task.State) *task.Feature {
	t.Helper()
	f := task.NewFeature(featureID)
	now := time.Now()
	var entries []task.HistoryEntry
	for i, st := range states {
		id := "T00" + string(rune('1'+i))
		tk := &task.Task{ID: id, Title: id, State: st, LastUpdated: now}
		if st == task.Blocked {
			tk.BlockerNote = "stuck"
		}
		f.Put(tk)
		entries = append(entries, task.NewHistoryEntry(featureID, id, "", st, "", now))
	}
	require.NoError(t, s.Commit(f, entries))
	return f
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)
	seedFeature(t, s, "auth", task.Pending, task.InProgress)

	f, err := s.Load("auth")
	require.NoError(t, err)
	require.Len(t, f.Tasks, 2)
	assert.Equal(t, task.Pending, f.Get("T001").State)
	assert.Equal(t, task.InProgress, f.Get("T002").State)
	assert.Equal(t, "auth", f.Get("T001").FeatureID)
}

func TestLoadUnknownFeature(t *testing.T) {
	s := newTestStore(t)
	seedFeature(t, s, "auth", task.Pending)

	_, err := s.Load("billing")
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.FeatureNotFound, cliErr.Code)
}

func TestSavePreservesOtherFeatures(t *testing.T) {
	s := newTestStore(t)
	seedFeature(t, s, "auth", task.Pending)
	seedFeature(t, s, "billing", task.InProgress)

	all, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.NotNil(t, all["auth"])
	assert.NotNil(t, all["billing"])
}

func TestLoadCorruptedStates(t *testing.T) {
	s := newTestStore(t)
	seedFeature(t, s, "auth", task.Pending)

	// Truncate the states file mid-document.
	path := filepath.Join(s.Dir(), StatesFileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o600))

	_, err = s.Load("auth")
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.CorruptedStore, cliErr.Code)
}

func TestLoadCorruptedStateEnum(t *testing.T) {
	s := newTestStore(t)
	doc := `{"tasks":{"auth":{"T001":{"id":"T001","state":"DONE"}}}}`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), StatesFileName), []byte(doc), 0o600))

	_, err := s.Load("auth")
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.CorruptedStore, cliErr.Code)
}

func TestLoadRepairsFromHistory(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	f := task.NewFeature("auth")
	f.Put(&task.Task{ID: "T001", State: task.Pending, LastUpdated: base})
	require.NoError(t, s.Save(f))

	// Simulate a crash after the history append but before the state
	// write: the log knows more than the states file.
	require.NoError(t, s.AppendHistory(
		task.NewHistoryEntry("auth", "T001", task.Pending, task.InProgress, "", base.Add(time.Minute)),
		task.NewHistoryEntry("auth", "T002", "", task.Pending, "created on first report", base.Add(2*time.Minute)),
	))

	loaded, err := s.Load("auth")
	require.NoError(t, err)
	assert.Equal(t, task.InProgress, loaded.Get("T001").State)

	recreated := loaded.Get("T002")
	require.NotNil(t, recreated, "task present only in history should be recreated")
	assert.Equal(t, task.Pending, recreated.State)
}

func TestLoadRepairsEqualTimestampEntries(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	// Anchor the feature so Load finds it.
	f := task.NewFeature("auth")
	f.Put(&task.Task{ID: "T001", State: task.Pending, LastUpdated: now.Add(-time.Hour)})
	require.NoError(t, s.Save(f))

	// An implicit creation and its follow-on transition are stamped with
	// the same clock reading. A crash before the state write leaves both
	// only in the log; replay must walk past the creation entry.
	require.NoError(t, s.AppendHistory(
		task.NewHistoryEntry("auth", "T002", "", task.Pending, "created on first report", now),
		task.NewHistoryEntry("auth", "T002", task.Pending, task.InProgress, "", now),
	))

	loaded, err := s.Load("auth")
	require.NoError(t, err)
	recreated := loaded.Get("T002")
	require.NotNil(t, recreated)
	assert.Equal(t, task.InProgress, recreated.State, "the transition sharing the creation timestamp must be replayed")
}

func TestRepairIgnoresOlderEntries(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	f := task.NewFeature("auth")
	f.Put(&task.Task{ID: "T001", State: task.Completed, LastUpdated: now})
	require.NoError(t, s.Save(f))

	// An entry older than the stored task must not rewind it.
	require.NoError(t, s.AppendHistory(
		task.NewHistoryEntry("auth", "T001", task.Pending, task.InProgress, "", now.Add(-time.Minute)),
	))

	loaded, err := s.Load("auth")
	require.NoError(t, err)
	assert.Equal(t, task.Completed, loaded.Get("T001").State)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	snap := progress.Snapshot{
		FeatureID:  "auth",
		TotalTasks: 4,
		Completed:  2,
		InProgress: 1,
		Pending:    1,
		Percentage: 50.0,
		ComputedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveSnapshot(snap))

	snaps, err := s.Snapshots()
	require.NoError(t, err)
	require.Contains(t, snaps, "auth")
	assert.Equal(t, snap.Completed, snaps["auth"].Completed)
	assert.Equal(t, snap.Percentage, snaps["auth"].Percentage)
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	seedFeature(t, s, "auth", task.Pending)
	seedFeature(t, s, "billing", task.InProgress)
	require.NoError(t, s.SaveSnapshot(progress.Snapshot{FeatureID: "auth", TotalTasks: 1, Pending: 1}))

	// Without confirmation nothing is touched.
	err := s.Reset("auth", false)
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.ConfirmationReq, cliErr.Code)
	_, err = s.Load("auth")
	require.NoError(t, err)

	require.NoError(t, s.Reset("auth", true))

	_, err = s.Load("auth")
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.FeatureNotFound, cliErr.Code)

	// The other feature and its history survive.
	_, err = s.Load("billing")
	require.NoError(t, err)
	entries, err := s.History("", 0)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, "auth", e.FeatureID)
	}

	snaps, err := s.Snapshots()
	require.NoError(t, err)
	assert.NotContains(t, snaps, "auth")
}

func TestResetUnknownFeature(t *testing.T) {
	s := newTestStore(t)
	seedFeature(t, s, "auth", task.Pending)

	err := s.Reset("billing", true)
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.FeatureNotFound, cliErr.Code)
}

func TestConcurrentAppends(t *testing.T) {
	s := newTestStore(t)
	const writers = 8
	const perWriter = 5

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				e := task.NewHistoryEntry("auth", "T001", task.Pending, task.InProgress, "", time.Now())
				if err := s.AppendHistory(e); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, err := s.History("auth", 0)
	require.NoError(t, err)
	assert.Len(t, entries, writers*perWriter, "locked appends must not drop entries")
}
