package agent

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrTransitionNotFound means no recording contains the requested id.
var ErrTransitionNotFound = errors.New("transition not found")

// Recorded lines embed two full snapshots, so they dwarf ordinary
// transcript lines.
const maxRecordBytes = 64 * 1024 * 1024

// Recorder persists transitions under <workspace>/.claudetrail/transitions,
// one JSONL file per recorder lifetime, one transition per line.
type Recorder struct {
	dir  string
	file string
}

// NewRecorder creates the storage directory and picks a fresh recording
// file.
func NewRecorder(workspaceRoot string) (*Recorder, error) {
	if err := os.MkdirAll(storeDir(workspaceRoot), 0o755); err != nil {
		return nil, fmt.Errorf("create transition store: %w", err)
	}
	return OpenRecorder(workspaceRoot), nil
}

// OpenRecorder binds to the workspace's transition store without creating
// it. Queries on a workspace that never recorded return nothing; Record
// fails until the store exists.
func OpenRecorder(workspaceRoot string) *Recorder {
	dir := storeDir(workspaceRoot)
	return &Recorder{
		dir:  dir,
		file: filepath.Join(dir, uuid.NewString()+".jsonl"),
	}
}

func storeDir(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ".claudetrail", "transitions")
}

// Dir returns the storage directory.
func (r *Recorder) Dir() string { return r.dir }

// Record appends one transition as a single JSON line.
func (r *Recorder) Record(t *Transition) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode transition: %w", err)
	}
	f, err := os.OpenFile(r.file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transition store: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write transition: %w", err)
	}
	return nil
}

// Recent returns recorded transitions from every recording in the store,
// newest first by RecordedAt. limit <= 0 means all.
func (r *Recorder) Recent(limit int) ([]*Transition, error) {
	all, err := r.readAll()
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].RecordedAt.After(all[j].RecordedAt)
	})
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Find scans every recording for the transition with the given id.
func (r *Recorder) Find(id uuid.UUID) (*Transition, error) {
	all, err := r.readAll()
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTransitionNotFound, id)
}

// readAll decodes every line of every recording. Torn or foreign lines are
// skipped so one bad write cannot poison the history.
func (r *Recorder) readAll() ([]*Transition, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read transition store: %w", err)
	}

	var all []*Transition
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		f, err := os.Open(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var t Transition
			if err := json.Unmarshal(line, &t); err != nil {
				continue
			}
			all = append(all, &t)
		}
		f.Close()
	}
	return all, nil
}
