// Package watch polls a project directory for transcript changes and
// surfaces per-session updates.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/claudetrail/internal/transcript"
)

// DefaultInterval is the polling cadence when none is configured.
const DefaultInterval = 2 * time.Second

// Update describes one changed session.
type Update struct {
	Session *transcript.Session
	Path    string

	// NewMessages counts messages added since the previous observation of
	// this transcript.
	NewMessages int

	// First marks a transcript seen for the first time after the watcher
	// started.
	First bool

	Time time.Time
}

// fileState is what a poll cycle remembers about one transcript.
type fileState struct {
	modTime  time.Time
	size     int64
	messages int
}

// Watcher polls a directory at a fixed interval, re-parsing transcripts
// whose size or modification time changed and reporting message growth.
type Watcher struct {
	dir      string
	interval time.Duration
	parser   transcript.Parser
	updateFn func(Update)
	previous map[string]fileState
}

// New creates a Watcher over dir emitting updates through updateFn.
func New(dir string, interval time.Duration, updateFn func(Update)) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		dir:      dir,
		interval: interval,
		updateFn: updateFn,
		previous: make(map[string]fileState),
	}
}

// Run primes the watcher with the directory's current contents, then checks
// at every interval. It blocks until ctx is cancelled. Transcripts that
// already exist at start are not reported; only subsequent growth is.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.prime(); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, u := range w.Check() {
				if w.updateFn != nil {
					w.updateFn(u)
				}
			}
		}
	}
}

// prime records the state of every transcript without emitting updates.
func (w *Watcher) prime() error {
	files, err := w.listTranscripts()
	if err != nil {
		return err
	}
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		state := fileState{modTime: info.ModTime(), size: info.Size()}
		if s, err := w.parser.ParseFile(path); err == nil {
			state.messages = s.Len()
		}
		w.previous[path] = state
	}
	return nil
}

// Check performs one poll cycle and returns an update per transcript that
// grew since the previous cycle. Transcripts that fail to parse (typically
// a partially written line) are retried on the next cycle.
func (w *Watcher) Check() []Update {
	files, err := w.listTranscripts()
	if err != nil {
		return nil
	}

	now := time.Now()
	seen := make(map[string]bool, len(files))
	var updates []Update

	for _, path := range files {
		seen[path] = true
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		prev, known := w.previous[path]
		if known && info.ModTime().Equal(prev.modTime) && info.Size() == prev.size {
			continue
		}

		s, err := w.parser.ParseFile(path)
		if err != nil {
			continue
		}

		w.previous[path] = fileState{modTime: info.ModTime(), size: info.Size(), messages: s.Len()}

		added := s.Len() - prev.messages
		if added > 0 || !known {
			updates = append(updates, Update{
				Session:     s,
				Path:        path,
				NewMessages: added,
				First:       !known,
				Time:        now,
			})
		}
	}

	// Forget transcripts that disappeared.
	for path := range w.previous {
		if !seen[path] {
			delete(w.previous, path)
		}
	}
	return updates
}

func (w *Watcher) listTranscripts() ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
