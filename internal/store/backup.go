package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/filelock"
)

// backupNameFormat is the timestamped directory name of one backup set.
const backupNameFormat = "20060102-150405"

// storeFiles are the files copied into each backup set.
var storeFiles = []string{StatesFileName, ProgressFileName, HistoryFileName}

// Backup copies the current store files into a new timestamped backup set
// and evicts the oldest sets beyond maxBackups. Missing store files are
// skipped (a fresh monitor has nothing to back up yet).
func (s *Store) Backup() (string, error) {
	unlock, err := filelock.Lock(s.lockPath())
	if err != nil {
		return "", fmt.Errorf("locking store: %w", err)
	}
	defer func() { _ = unlock() }()

	name := time.Now().Format(backupNameFormat)
	dest := filepath.Join(s.backupsDir, name)
	if err := os.MkdirAll(dest, dirMode); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	for _, file := range storeFiles {
		src := filepath.Join(s.dir, file)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := copyFile(src, filepath.Join(dest, file)); err != nil {
			return "", fmt.Errorf("backing up %s: %w", file, err)
		}
	}

	if err := s.rotateBackups(); err != nil {
		return name, fmt.Errorf("rotating backups: %w", err)
	}
	return name, nil
}

// Backups lists existing backup set names, oldest first.
func (s *Store) Backups() ([]string, error) {
	entries, err := os.ReadDir(s.backupsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backups directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Restore atomically replaces the current store files with those from the
// named backup set. It overwrites live data and therefore requires
// confirmation.
func (s *Store) Restore(name string, confirm bool) error {
	if !confirm {
		return clierr.Newf(clierr.ConfirmationReq,
			"restoring backup %q overwrites current data; confirmation required", name).
			WithDetails(map[string]any{"backup": name})
	}

	src := filepath.Join(s.backupsDir, name)
	if _, err := os.Stat(src); err != nil {
		return clierr.Newf(clierr.BackupNotFound, "backup %q not found", name).
			WithDetails(map[string]any{"backup": name})
	}

	unlock, err := filelock.Lock(s.lockPath())
	if err != nil {
		return fmt.Errorf("locking store: %w", err)
	}
	defer func() { _ = unlock() }()

	for _, file := range storeFiles {
		from := filepath.Join(src, file)
		data, err := os.ReadFile(from) //nolint:gosec // backup path from trusted backups dir
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("reading backup file %s: %w", file, err)
		}
		if err := s.writeBytes(filepath.Join(s.dir, file), data); err != nil {
			return err
		}
	}
	return nil
}

// rotateBackups removes the oldest backup sets beyond maxBackups.
func (s *Store) rotateBackups() error {
	names, err := s.Backups()
	if err != nil {
		return err
	}
	for len(names) > s.maxBackups {
		if err := os.RemoveAll(filepath.Join(s.backupsDir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}

// writeBytes atomically replaces path with the given content.
func (s *Store) writeBytes(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting mode on temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// copyFile copies src to dst, creating or truncating dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // store path from trusted monitor dir
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode) //nolint:gosec // backup path from trusted backups dir
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
