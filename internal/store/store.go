// Package store provides durable persistence for task states, progress
// snapshots, and the append-only history log.
//
// Every write goes to a uniquely named temporary file in the store directory
// and is renamed into place, so a concurrent reader sees either the old or
// the fully written new content, never a partial file. The store offers no
// cross-process locking of read-modify-write cycles; a lost update between
// concurrent writers is an accepted limitation, corruption is not.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/filelock"
	"github.com/twiced-technology-gmbh/taskmon/internal/progress"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

// Store file names within the monitor directory.
const (
	StatesFileName   = "task-states.json"
	ProgressFileName = "task-progress.json"
	HistoryFileName  = "task-history.json"

	lockFileName = ".taskmon.lock"
	fileMode     = 0o600
	dirMode      = 0o750
)

// Store reads and writes the on-disk stores of one monitor directory.
// It holds no file open across operations; each call opens, acts, and closes.
type Store struct {
	dir        string
	backupsDir string
	maxBackups int
}

// New creates a Store rooted at the given monitor directory.
func New(dir, backupsDir string, maxBackups int) *Store {
	return &Store{dir: dir, backupsDir: backupsDir, maxBackups: maxBackups}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) statesPath() string   { return filepath.Join(s.dir, StatesFileName) }
func (s *Store) progressPath() string { return filepath.Join(s.dir, ProgressFileName) }
func (s *Store) historyPath() string  { return filepath.Join(s.dir, HistoryFileName) }
func (s *Store) lockPath() string     { return filepath.Join(s.dir, lockFileName) }

// statesDoc is the persisted shape of task-states.json.
type statesDoc struct {
	Tasks    map[string]map[string]*task.Task `json:"tasks"`
	Metadata metadata                         `json:"metadata"`
}

type metadata struct {
	LastUpdated time.Time `json:"last_updated"`
}

// historyDoc is the persisted shape of task-history.json.
type historyDoc struct {
	Entries []task.HistoryEntry `json:"entries"`
}

// progressDoc is the persisted shape of task-progress.json.
type progressDoc struct {
	Features map[string]progress.Snapshot `json:"features"`
}

// corrupted builds the structured error for a store that fails to load.
func corrupted(path, reason string) error {
	return clierr.Newf(clierr.CorruptedStore,
		"store %s is corrupted: %s (restore a backup or reset)", filepath.Base(path), reason).
		WithDetails(map[string]any{"path": path, "reason": reason})
}

// readStates loads and structurally checks task-states.json.
// A missing file yields an empty document.
func (s *Store) readStates() (*statesDoc, error) {
	doc := &statesDoc{Tasks: make(map[string]map[string]*task.Task)}

	data, err := os.ReadFile(s.statesPath()) //nolint:gosec // store path from trusted monitor dir
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading task states: %w", err)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, corrupted(s.statesPath(), err.Error())
	}
	if doc.Tasks == nil {
		doc.Tasks = make(map[string]map[string]*task.Task)
	}
	for featureID, tasks := range doc.Tasks {
		for id, t := range tasks {
			if t == nil || !t.State.Valid() {
				return nil, corrupted(s.statesPath(),
					fmt.Sprintf("task %s/%s has an invalid state", featureID, id))
			}
		}
	}
	return doc, nil
}

// writeStates atomically replaces task-states.json.
func (s *Store) writeStates(doc *statesDoc) error {
	doc.Metadata.LastUpdated = time.Now()
	return s.writeJSON(s.statesPath(), doc)
}

// Load returns the stored feature, repaired against any history entries that
// postdate its task states (a crash between the history append and the state
// write leaves history ahead; history is the source of truth).
func (s *Store) Load(featureID string) (*task.Feature, error) {
	doc, err := s.readStates()
	if err != nil {
		return nil, err
	}

	tasks, ok := doc.Tasks[featureID]
	if !ok {
		return nil, clierr.Newf(clierr.FeatureNotFound, "feature %q not found", featureID).
			WithDetails(map[string]any{"feature_id": featureID})
	}

	f := &task.Feature{ID: featureID, Tasks: tasks}
	for id, t := range f.Tasks {
		t.ID = id
		t.FeatureID = featureID
	}

	entries, err := s.readHistory()
	if err != nil {
		return nil, err
	}
	repair(f, entries.Entries)

	return f, nil
}

// LoadAll returns every stored feature, repaired like Load.
func (s *Store) LoadAll() (map[string]*task.Feature, error) {
	doc, err := s.readStates()
	if err != nil {
		return nil, err
	}
	entries, err := s.readHistory()
	if err != nil {
		return nil, err
	}

	features := make(map[string]*task.Feature, len(doc.Tasks))
	for featureID, tasks := range doc.Tasks {
		f := &task.Feature{ID: featureID, Tasks: tasks}
		for id, t := range f.Tasks {
			t.ID = id
			t.FeatureID = featureID
		}
		repair(f, entries.Entries)
		features[featureID] = f
	}
	return features, nil
}

// repair replays history entries at or after a task's last update onto the
// feature, recreating tasks whose creation entry outran the state write.
// Entries sharing one timestamp (a creation and its follow-on transition
// committed together) are disambiguated by log order; the state guard keeps
// the replay idempotent on already-consistent tasks.
func repair(f *task.Feature, entries []task.HistoryEntry) {
	for i := range entries {
		e := &entries[i]
		if e.FeatureID != f.ID {
			continue
		}
		t := f.Get(e.TaskID)
		if t == nil {
			t = &task.Task{
				ID:          e.TaskID,
				State:       e.ToState,
				LastUpdated: e.Timestamp,
			}
			if e.ToState == task.Blocked {
				t.BlockerNote = e.Note
			}
			f.Put(t)
			continue
		}
		if !e.Timestamp.Before(t.LastUpdated) && e.ToState != t.State {
			t.State = e.ToState
			t.LastUpdated = e.Timestamp
			if e.ToState == task.Blocked {
				t.BlockerNote = e.Note
			} else {
				t.BlockerNote = ""
			}
		}
	}
}

// Save atomically replaces the stored state of one feature, leaving other
// features untouched.
func (s *Store) Save(f *task.Feature) error {
	doc, err := s.readStates()
	if err != nil {
		return err
	}
	doc.Tasks[f.ID] = f.Tasks
	return s.writeStates(doc)
}

// Commit persists a feature update together with its history entries.
// The history append lands first so that a crash between the two writes is
// repaired (never silently inconsistent) on the next Load.
func (s *Store) Commit(f *task.Feature, entries []task.HistoryEntry) error {
	unlock, err := filelock.Lock(s.lockPath())
	if err != nil {
		return fmt.Errorf("locking store: %w", err)
	}
	defer func() { _ = unlock() }()

	if err := s.appendHistoryLocked(entries); err != nil {
		return err
	}
	return s.Save(f)
}

// SaveSnapshot updates the progress cache for one feature. The cache is
// always re-derivable from task states and history.
func (s *Store) SaveSnapshot(snap progress.Snapshot) error {
	doc, err := s.readProgress()
	if err != nil {
		return err
	}
	doc.Features[snap.FeatureID] = snap
	return s.writeJSON(s.progressPath(), doc)
}

// Snapshots returns the cached progress snapshots by feature id.
func (s *Store) Snapshots() (map[string]progress.Snapshot, error) {
	doc, err := s.readProgress()
	if err != nil {
		return nil, err
	}
	return doc.Features, nil
}

func (s *Store) readProgress() (*progressDoc, error) {
	doc := &progressDoc{Features: make(map[string]progress.Snapshot)}

	data, err := os.ReadFile(s.progressPath()) //nolint:gosec // store path from trusted monitor dir
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading progress cache: %w", err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, corrupted(s.progressPath(), err.Error())
	}
	if doc.Features == nil {
		doc.Features = make(map[string]progress.Snapshot)
	}
	return doc, nil
}

// Reset removes all tasks, history entries, and cached snapshots for one
// feature. It is the only destructive operation and requires explicit
// confirmation from the caller.
func (s *Store) Reset(featureID string, confirm bool) error {
	if !confirm {
		return clierr.Newf(clierr.ConfirmationReq,
			"resetting feature %q is destructive; confirmation required", featureID).
			WithDetails(map[string]any{"feature_id": featureID})
	}

	unlock, err := filelock.Lock(s.lockPath())
	if err != nil {
		return fmt.Errorf("locking store: %w", err)
	}
	defer func() { _ = unlock() }()

	states, err := s.readStates()
	if err != nil {
		return err
	}
	if _, ok := states.Tasks[featureID]; !ok {
		return clierr.Newf(clierr.FeatureNotFound, "feature %q not found", featureID).
			WithDetails(map[string]any{"feature_id": featureID})
	}
	delete(states.Tasks, featureID)
	if err := s.writeStates(states); err != nil {
		return err
	}

	hist, err := s.readHistory()
	if err != nil {
		return err
	}
	kept := hist.Entries[:0]
	for _, e := range hist.Entries {
		if e.FeatureID != featureID {
			kept = append(kept, e)
		}
	}
	hist.Entries = kept
	if err := s.writeJSON(s.historyPath(), hist); err != nil {
		return err
	}

	prog, err := s.readProgress()
	if err != nil {
		return err
	}
	delete(prog.Features, featureID)
	return s.writeJSON(s.progressPath(), prog)
}

// writeJSON marshals v and atomically replaces path: the bytes land in a
// uniquely named temporary file first, which is then renamed into place.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return s.writeBytes(path, append(data, '\n'))
}
