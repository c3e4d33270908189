package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTranscript writes a transcript of n user messages under dir and
// returns its path.
func writeTranscript(t *testing.T, dir, name, id string, n int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create transcript: %v", err)
	}
	defer f.Close()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		fmt.Fprintln(f, transcriptLine(id, i, base))
	}
	return path
}

// appendMessages appends n more user messages to an existing transcript,
// numbered starting at offset.
func appendMessages(t *testing.T, path, id string, offset, n int) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("failed to open transcript for append: %v", err)
	}
	defer f.Close()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		fmt.Fprintln(f, transcriptLine(id, offset+i, base))
	}
}

func transcriptLine(id string, i int, base time.Time) string {
	ts := base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
	return fmt.Sprintf(`{"type":"user","uuid":"%s-m%d","timestamp":"%s","sessionId":"%s","message":{"role":"user","content":"turn %d"}}`,
		id, i, ts, id, i)
}

func TestNew_Defaults(t *testing.T) {
	w := New("/some/dir", 0, nil)

	if w.dir != "/some/dir" {
		t.Errorf("expected dir '/some/dir', got %q", w.dir)
	}
	if w.interval != DefaultInterval {
		t.Errorf("expected default interval %v, got %v", DefaultInterval, w.interval)
	}

	w = New("/some/dir", 10*time.Second, nil)
	if w.interval != 10*time.Second {
		t.Errorf("expected interval 10s, got %v", w.interval)
	}
}

func TestCheck_ReportsNewTranscript(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, time.Second, nil)
	if err := w.prime(); err != nil {
		t.Fatalf("prime error: %v", err)
	}

	path := writeTranscript(t, dir, "sess-1.jsonl", "sess-1", 2)

	updates := w.Check()
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	u := updates[0]
	if !u.First {
		t.Error("expected First for a transcript seen for the first time")
	}
	if u.NewMessages != 2 {
		t.Errorf("expected 2 new messages, got %d", u.NewMessages)
	}
	if u.Path != path {
		t.Errorf("expected path %q, got %q", path, u.Path)
	}
	if u.Session == nil || u.Session.SessionID != "sess-1" {
		t.Errorf("expected session sess-1, got %+v", u.Session)
	}
	if u.Time.IsZero() {
		t.Error("expected non-zero update time")
	}
}

func TestCheck_ReportsAppendedMessages(t *testing.T) {
	dir := t.TempDir()
	path := writeTranscript(t, dir, "sess-1.jsonl", "sess-1", 2)

	w := New(dir, time.Second, nil)
	if err := w.prime(); err != nil {
		t.Fatalf("prime error: %v", err)
	}

	appendMessages(t, path, "sess-1", 2, 3)

	updates := w.Check()
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	u := updates[0]
	if u.First {
		t.Error("expected First to be false for a primed transcript")
	}
	if u.NewMessages != 3 {
		t.Errorf("expected 3 new messages, got %d", u.NewMessages)
	}
	if u.Session.Len() != 5 {
		t.Errorf("expected 5 messages in session, got %d", u.Session.Len())
	}
}

func TestCheck_IgnoresUnchangedTranscripts(t *testing.T) {
	dir := t.TempDir()
	writeTranscript(t, dir, "sess-1.jsonl", "sess-1", 2)

	w := New(dir, time.Second, nil)
	if err := w.prime(); err != nil {
		t.Fatalf("prime error: %v", err)
	}

	if updates := w.Check(); len(updates) != 0 {
		t.Errorf("expected no updates, got %d", len(updates))
	}
}

func TestCheck_RetriesUnparseableTranscripts(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, time.Second, nil)
	if err := w.prime(); err != nil {
		t.Fatalf("prime error: %v", err)
	}

	// A torn write: the file exists but does not parse yet.
	path := filepath.Join(dir, "sess-1.jsonl")
	if err := os.WriteFile(path, []byte(`{"type":"user","uuid":"sess-`), 0o644); err != nil {
		t.Fatalf("failed to write torn transcript: %v", err)
	}
	if updates := w.Check(); len(updates) != 0 {
		t.Errorf("expected no updates for torn transcript, got %d", len(updates))
	}

	// The write completes; the next cycle picks it up.
	writeTranscript(t, dir, "sess-1.jsonl", "sess-1", 2)
	updates := w.Check()
	if len(updates) != 1 {
		t.Fatalf("expected 1 update after completed write, got %d", len(updates))
	}
	if !updates[0].First || updates[0].NewMessages != 2 {
		t.Errorf("expected first sighting with 2 messages, got %+v", updates[0])
	}
}

func TestCheck_ForgetsDeletedTranscripts(t *testing.T) {
	dir := t.TempDir()
	path := writeTranscript(t, dir, "sess-1.jsonl", "sess-1", 2)

	w := New(dir, time.Second, nil)
	if err := w.prime(); err != nil {
		t.Fatalf("prime error: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove transcript: %v", err)
	}
	if updates := w.Check(); len(updates) != 0 {
		t.Errorf("expected no updates after deletion, got %d", len(updates))
	}

	// Recreated transcripts count as new sightings.
	writeTranscript(t, dir, "sess-1.jsonl", "sess-1", 1)
	updates := w.Check()
	if len(updates) != 1 {
		t.Fatalf("expected 1 update after recreation, got %d", len(updates))
	}
	if !updates[0].First {
		t.Error("expected recreated transcript to be reported as first sighting")
	}
}

func TestRun_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent"), time.Second, nil)

	err := w.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(t.TempDir(), time.Minute, nil)
	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_EmitsUpdates(t *testing.T) {
	dir := t.TempDir()
	path := writeTranscript(t, dir, "sess-1.jsonl", "sess-1", 1)

	ch := make(chan Update, 16)
	w := New(dir, 2*time.Millisecond, func(u Update) { ch <- u })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Keep appending until a cycle reports growth; each append guarantees
	// the next tick sees a change regardless of what the initial scan saw.
	deadline := time.After(5 * time.Second)
	next := 1
	var got Update
waiting:
	for {
		select {
		case got = <-ch:
			break waiting
		case <-time.After(20 * time.Millisecond):
			appendMessages(t, path, "sess-1", next, 1)
			next++
		case <-deadline:
			t.Fatal("timed out waiting for an update")
		}
	}

	if got.Path != path {
		t.Errorf("expected path %q, got %q", path, got.Path)
	}
	if got.NewMessages < 1 {
		t.Errorf("expected at least one new message, got %d", got.NewMessages)
	}
	if got.Session == nil {
		t.Fatal("expected a parsed session in the update")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
