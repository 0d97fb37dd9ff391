package store

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

func TestHistoryAppendOrder(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	for i := 0; i < 3; i++ {
		e := task.NewHistoryEntry("auth", "T001", task.Pending, task.InProgress, "", now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.AppendHistory(e))
	}

	entries, err := s.History("auth", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Timestamp.Before(entries[2].Timestamp), "entries keep append order, newest last")
}

func TestHistoryFilterAndLimit(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.AppendHistory(
		task.NewHistoryEntry("auth", "T001", "", task.Pending, "", now),
		task.NewHistoryEntry("billing", "T001", "", task.Pending, "", now),
		task.NewHistoryEntry("auth", "T001", task.Pending, task.InProgress, "", now.Add(time.Minute)),
	))

	auth, err := s.History("auth", 0)
	require.NoError(t, err)
	assert.Len(t, auth, 2)

	all, err := s.History("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.History("auth", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, task.InProgress, limited[0].ToState)
}

func TestHistoryEmptyLog(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.History("auth", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPruneHistory(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.AppendHistory(
		task.NewHistoryEntry("auth", "T001", "", task.Pending, "", now.AddDate(0, 0, -100)),
		task.NewHistoryEntry("auth", "T001", task.Pending, task.InProgress, "", now.AddDate(0, 0, -95)),
		task.NewHistoryEntry("auth", "T001", task.InProgress, task.Completed, "", now),
	))

	cutoff := now.AddDate(0, 0, -90)

	// Pruning without confirmation is rejected and deletes nothing.
	_, err := s.PruneHistory(cutoff, false)
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.ConfirmationReq, cliErr.Code)

	removed, err := s.PruneHistory(cutoff, true)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err := s.History("auth", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, task.Completed, entries[0].ToState)

	// A second prune finds nothing left to remove.
	removed, err = s.PruneHistory(cutoff, true)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestHistoryCorrupted(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.historyPath(), []byte(`{"entries":[{"to_state":"NOPE"}]}`), 0o600))

	_, err := s.History("", 0)
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.CorruptedStore, cliErr.Code)
}
