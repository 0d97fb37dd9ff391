package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

func TestBackupAndRestore(t *testing.T) {
	s := newTestStore(t)
	seedFeature(t, s, "auth", task.Pending, task.InProgress)

	name, err := s.Backup()
	require.NoError(t, err)
	require.NotEmpty(t, name)

	// The backup set holds copies of the live store files.
	_, err = os.Stat(filepath.Join(s.backupsDir, name, StatesFileName))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.backupsDir, name, HistoryFileName))
	require.NoError(t, err)

	// Corrupt the live store, then restore.
	require.NoError(t, os.WriteFile(s.statesPath(), []byte("{broken"), 0o600))
	_, err = s.Load("auth")
	require.Error(t, err)

	require.NoError(t, s.Restore(name, true))

	f, err := s.Load("auth")
	require.NoError(t, err)
	assert.Len(t, f.Tasks, 2)
}

func TestRestoreRequiresConfirmation(t *testing.T) {
	s := newTestStore(t)
	seedFeature(t, s, "auth", task.Pending)

	name, err := s.Backup()
	require.NoError(t, err)

	err = s.Restore(name, false)
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.ConfirmationReq, cliErr.Code)
}

func TestRestoreUnknownBackup(t *testing.T) {
	s := newTestStore(t)

	err := s.Restore("20200101-000000", true)
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.BackupNotFound, cliErr.Code)
}

func TestBackupRotation(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, filepath.Join(dir, "backups"), 2)
	seedFeature(t, s, "auth", task.Pending)

	// Pre-seed old backup sets; the next Backup call rotates past the cap.
	for _, old := range []string{"20200101-000000", "20200102-000000"} {
		require.NoError(t, os.MkdirAll(filepath.Join(s.backupsDir, old), 0o750))
	}

	name, err := s.Backup()
	require.NoError(t, err)

	names, err := s.Backups()
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.NotContains(t, names, "20200101-000000", "oldest backup is evicted")
	assert.Contains(t, names, name)
}

func TestBackupsEmpty(t *testing.T) {
	s := newTestStore(t)
	names, err := s.Backups()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestBackupSkipsMissingFiles(t *testing.T) {
	s := newTestStore(t)

	// A fresh monitor has no store files yet; backing up still succeeds.
	name, err := s.Backup()
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.backupsDir, name))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
