package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/filelock"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

// readHistory loads task-history.json. A missing file yields an empty log.
func (s *Store) readHistory() (*historyDoc, error) {
	doc := &historyDoc{}

	data, err := os.ReadFile(s.historyPath()) //nolint:gosec // store path from trusted monitor dir
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}
	if err := unmarshalHistory(data, doc); err != nil {
		return nil, corrupted(s.historyPath(), err.Error())
	}
	return doc, nil
}

// unmarshalHistory parses and structurally checks the history log.
// The from state may be empty (task creation); the to state must be valid.
func unmarshalHistory(data []byte, doc *historyDoc) error {
	if err := json.Unmarshal(data, doc); err != nil {
		return err
	}
	for i := range doc.Entries {
		e := &doc.Entries[i]
		if !e.ToState.Valid() {
			return fmt.Errorf("entry %d has invalid to_state %q", i, e.ToState)
		}
		if e.FromState != "" && !e.FromState.Valid() {
			return fmt.Errorf("entry %d has invalid from_state %q", i, e.FromState)
		}
	}
	return nil
}

// AppendHistory appends entries to the history log. The rewrite is serialized
// with an advisory lock so concurrent appends never drop each other's
// entries, then lands atomically via rename.
func (s *Store) AppendHistory(entries ...task.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	unlock, err := filelock.Lock(s.lockPath())
	if err != nil {
		return fmt.Errorf("locking store: %w", err)
	}
	defer func() { _ = unlock() }()

	return s.appendHistoryLocked(entries)
}

// appendHistoryLocked assumes the store lock is held.
func (s *Store) appendHistoryLocked(entries []task.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	doc, err := s.readHistory()
	if err != nil {
		return err
	}
	doc.Entries = append(doc.Entries, entries...)
	return s.writeJSON(s.historyPath(), doc)
}

// History returns entries for a feature in append order, newest last.
// An empty featureID selects all features; limit > 0 keeps only the most
// recent entries.
func (s *Store) History(featureID string, limit int) ([]task.HistoryEntry, error) {
	doc, err := s.readHistory()
	if err != nil {
		return nil, err
	}

	entries := doc.Entries
	if featureID != "" {
		filtered := make([]task.HistoryEntry, 0, len(entries))
		for _, e := range entries {
			if e.FeatureID == featureID {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// PruneHistory removes entries older than the cutoff. History is otherwise
// append-only, so pruning requires explicit confirmation.
func (s *Store) PruneHistory(cutoff time.Time, confirm bool) (int, error) {
	if !confirm {
		return 0, clierr.New(clierr.ConfirmationReq,
			"pruning history is destructive; confirmation required")
	}

	unlock, err := filelock.Lock(s.lockPath())
	if err != nil {
		return 0, fmt.Errorf("locking store: %w", err)
	}
	defer func() { _ = unlock() }()

	doc, err := s.readHistory()
	if err != nil {
		return 0, err
	}

	kept := make([]task.HistoryEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(doc.Entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	doc.Entries = kept
	if err := s.writeJSON(s.historyPath(), doc); err != nil {
		return 0, err
	}
	return removed, nil
}
