// Package discovery derives tasks from markdown source files.
//
// Two file shapes are recognized: per-task files (one task per file,
// identified by an id-prefixed filename or YAML frontmatter) and aggregate
// files (many tasks per file, identified by headings or checkbox list items).
package discovery

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/taskmon/internal/clierr"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

// Declared is one task as read from a markdown source file.
type Declared struct {
	ID          string
	Title       string
	Description string
	State       task.State
	BlockerNote string

	// File is the base name of the source file.
	File string
}

// Warning describes a file or entry that could not be fully processed.
// Warnings never abort an otherwise-successful scan.
type Warning struct {
	File string
	Err  error
}

// Result is the outcome of scanning one feature directory.
type Result struct {
	Tasks      map[string]*Declared
	Warnings   []Warning
	EmptyFiles []string
}

// Marker grammar: checkbox markers map onto lifecycle states.
var markerStates = map[byte]task.State{
	'x': task.Completed,
	'>': task.InProgress,
	'!': task.Blocked,
	' ': task.Pending,
}

var (
	checkboxRe = regexp.MustCompile(`^\s*[-*]\s*\[([ x>!])\]\s*(.*)$`)
	headingRe  = regexp.MustCompile(`^#{1,6}\s+(.*)$`)
	idTokenRe  = regexp.MustCompile(`^((?:[A-Z][A-Z0-9]*-)?T\d{1,4})\b[:.\-]?\s*(.*)$`)
	fileIDRe   = regexp.MustCompile(`^((?:[A-Z][A-Z0-9]*-)?T\d{1,4})(?:-|\.|$)`)
	inlineRe   = regexp.MustCompile(`\[([ x>!])\]`)
)

// blockedKeywords trigger the fallback classification for tasks whose
// source text carries no marker.
var blockedKeywords = []string{"error", "failed", "exception"}

// Scan reads every markdown file in dir and returns the declared tasks.
// Malformed files are skipped and reported as warnings; files yielding no
// tasks are reported as empty. A missing directory yields an empty result.
// Scanning stops adding tasks once maxTasks is reached and reports a
// CAPACITY_EXCEEDED warning.
func Scan(dir string, maxTasks int) (*Result, error) {
	res := &Result{Tasks: make(map[string]*Declared)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return nil, fmt.Errorf("reading feature directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".md" {
			continue
		}

		path := filepath.Join(dir, name)
		declared, err := scanFile(path, name)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{File: name, Err: err})
			continue
		}
		if len(declared) == 0 {
			res.EmptyFiles = append(res.EmptyFiles, name)
			continue
		}

		for _, d := range declared {
			if _, dup := res.Tasks[d.ID]; dup {
				res.Warnings = append(res.Warnings, Warning{
					File: name,
					Err:  fmt.Errorf("duplicate task id %s (first occurrence wins)", d.ID),
				})
				continue
			}
			if len(res.Tasks) >= maxTasks {
				res.Warnings = append(res.Warnings, Warning{
					File: name,
					Err: clierr.Newf(clierr.CapacityExceeded,
						"feature exceeds %d tasks; remaining entries skipped", maxTasks).
						WithDetails(map[string]any{"max_tasks": maxTasks}),
				})
				return res, nil
			}
			res.Tasks[d.ID] = d
		}
	}

	return res, nil
}

// scanFile parses one markdown file into declared tasks.
func scanFile(path, name string) ([]*Declared, error) {
	data, err := os.ReadFile(path) //nolint:gosec // task path from trusted feature dir
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	if fileID := fileIDRe.FindStringSubmatch(strings.TrimSuffix(name, ".md")); fileID != nil {
		d, err := parseTaskFile(data, fileID[1], name)
		if err != nil {
			return nil, err
		}
		return []*Declared{d}, nil
	}
	if bytes.HasPrefix(data, []byte("---\n")) {
		d, err := parseTaskFile(data, "", name)
		if err != nil {
			return nil, err
		}
		return []*Declared{d}, nil
	}

	return parseAggregate(data, name), nil
}

// frontmatter is the optional YAML header of a per-task file.
type frontmatter struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// parseTaskFile parses a per-task file. The id comes from the frontmatter
// when present, else from the filename prefix.
func parseTaskFile(data []byte, fileID, name string) (*Declared, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	var meta frontmatter
	if len(fm) > 0 {
		if err := yaml.Unmarshal(fm, &meta); err != nil {
			return nil, fmt.Errorf("parsing frontmatter in %s: %w", name, err)
		}
	}

	id := meta.ID
	if id == "" {
		id = fileID
	}
	if !task.ValidID(id) {
		return nil, fmt.Errorf("no valid task id in %s", name)
	}

	d := &Declared{ID: id, Title: meta.Title, Description: meta.Description, State: task.Pending, File: name}

	var descLines []string
	hasMarker := false
	for _, line := range strings.Split(body, "\n") {
		if m := checkboxRe.FindStringSubmatch(line); m != nil && !hasMarker {
			hasMarker = true
			d.State = markerStates[m[1][0]]
			if d.Title == "" {
				d.Title = strings.TrimSpace(m[2])
			}
			continue
		}
		if d.Title == "" {
			if h := headingRe.FindStringSubmatch(line); h != nil {
				d.Title = strings.TrimSpace(h[1])
				continue
			}
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			descLines = append(descLines, trimmed)
		}
	}
	if d.Description == "" {
		d.Description = strings.Join(descLines, "\n")
	}
	if d.Title == "" {
		d.Title = d.ID
	}

	if !hasMarker {
		applyBlockedFallback(d)
	}
	if d.State == task.Blocked && d.BlockerNote == "" {
		d.BlockerNote = blockerNoteFrom(d, "declared blocked in "+name)
	}

	return d, nil
}

// parseAggregate parses a many-tasks-per-file shape. Tasks are introduced by
// checkbox list items carrying an id token, or by headings carrying one.
func parseAggregate(data []byte, name string) []*Declared {
	var tasks []*Declared
	var current *Declared
	currentHasMarker := false

	finalize := func() {
		if current == nil {
			return
		}
		if !currentHasMarker {
			applyBlockedFallback(current)
		}
		if current.State == task.Blocked && current.BlockerNote == "" {
			current.BlockerNote = blockerNoteFrom(current, "declared blocked in "+name)
		}
		tasks = append(tasks, current)
		current = nil
	}

	for _, line := range strings.Split(string(data), "\n") {
		if m := checkboxRe.FindStringSubmatch(line); m != nil {
			if id := idTokenRe.FindStringSubmatch(strings.TrimSpace(m[2])); id != nil {
				finalize()
				current = &Declared{
					ID:    id[1],
					Title: strings.TrimSpace(id[2]),
					State: markerStates[m[1][0]],
					File:  name,
				}
				currentHasMarker = true
				continue
			}
		}
		if h := headingRe.FindStringSubmatch(line); h != nil {
			if id := idTokenRe.FindStringSubmatch(strings.TrimSpace(h[1])); id != nil {
				finalize()
				current = &Declared{ID: id[1], Title: strings.TrimSpace(id[2]), State: task.Pending, File: name}
				currentHasMarker = false
				// An inline marker on the heading itself also counts.
				if im := inlineRe.FindStringSubmatch(current.Title); im != nil {
					current.State = markerStates[im[1][0]]
					current.Title = strings.TrimSpace(inlineRe.ReplaceAllString(current.Title, ""))
					currentHasMarker = true
				}
				continue
			}
			// A heading without an id ends the current task's scope.
			finalize()
			continue
		}
		if current != nil {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				if current.Description != "" {
					current.Description += "\n"
				}
				current.Description += trimmed
			}
		}
	}
	finalize()

	return tasks
}

// applyBlockedFallback classifies a marker-less task as BLOCKED when its
// surrounding text contains failure-indicating keywords.
func applyBlockedFallback(d *Declared) {
	text := strings.ToLower(d.Title + "\n" + d.Description)
	for _, kw := range blockedKeywords {
		if strings.Contains(text, kw) {
			d.State = task.Blocked
			d.BlockerNote = blockerNoteFrom(d, "")
			return
		}
	}
}

// blockerNoteFrom picks the most specific text available as a blocker note.
func blockerNoteFrom(d *Declared, fallback string) string {
	if d.Description != "" {
		return firstLine(d.Description)
	}
	if d.Title != "" {
		return d.Title
	}
	return fallback
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// splitFrontmatter splits a markdown file into YAML frontmatter and body.
// Files without a leading "---" line have no frontmatter; the whole content
// is the body.
func splitFrontmatter(data []byte) ([]byte, string, error) {
	content := string(data)

	if !strings.HasPrefix(content, "---\n") {
		return nil, content, nil
	}

	rest := content[4:] // skip opening ---\n
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		closingLen := len("---")
		if strings.HasSuffix(rest, "\n---") {
			idx = len(rest) - closingLen
		} else {
			return nil, "", errors.New("unclosed frontmatter (missing closing ---)")
		}
	}

	fm := rest[:idx]
	body := ""
	closingEnd := idx + len("\n---\n")
	if closingEnd < len(rest) {
		body = strings.TrimLeft(rest[closingEnd:], "\n")
	}

	return []byte(fm), body, nil
}
