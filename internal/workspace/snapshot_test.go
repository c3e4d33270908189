package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeTranscript drops a minimal one-turn transcript for the given session
// id into dir, named the way Claude Code names them.
func writeTranscript(t *testing.T, dir, id string) string {
	t.Helper()
	line := fmt.Sprintf(`{"type":"user","uuid":"%s-u1","timestamp":"2025-06-01T10:30:00Z","sessionId":"%s","message":{"role":"user","content":"hello"}}`, id, id)
	path := filepath.Join(dir, id+".jsonl")
	writeFile(t, path, line+"\n")
	return path
}

// newTestWorkspace builds a workspace rooted in a temp dir with a fake
// Claude home, returning both along with the project dir Claude would use.
func newTestWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	root := t.TempDir()
	home := t.TempDir()

	abs, err := filepath.Abs(root)
	require.NoError(t, err)
	projectDir := filepath.Join(home, "projects", EncodeProjectPath(abs))

	w, err := NewWithConfig(root, Config{ClaudeHome: home})
	require.NoError(t, err)
	return w, projectDir
}

func TestNewMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSnapshotFilesTracksPatterns(t *testing.T) {
	w, _ := newTestWorkspace(t)
	root := w.Root()

	writeFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "README.md"), "# readme\n")
	writeFile(t, filepath.Join(root, "Dockerfile"), "FROM scratch\n")
	writeFile(t, filepath.Join(root, ".gitignore"), "bin/\n")
	writeFile(t, filepath.Join(root, "cfg", "app.yaml"), "key: value\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "untracked\n")
	writeFile(t, filepath.Join(root, "bin", "tool.exe"), "binary\n")

	files, err := w.SnapshotFiles()
	require.NoError(t, err)

	want := map[string]string{
		"main.go":      "package main\n",
		"README.md":    "# readme\n",
		"Dockerfile":   "FROM scratch\n",
		".gitignore":   "bin/\n",
		"cfg/app.yaml": "key: value\n",
	}
	assert.Equal(t, want, files)
}

func TestSnapshotFilesCustomPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "a")
	writeFile(t, filepath.Join(root, "b.txt"), "b")

	w, err := NewWithConfig(root, Config{Patterns: []string{"*.txt"}, ClaudeHome: t.TempDir()})
	require.NoError(t, err)

	files, err := w.SnapshotFiles()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b.txt": "b"}, files)
}

func TestActiveSessionFile(t *testing.T) {
	w, projectDir := newTestWorkspace(t)

	older := writeTranscript(t, projectDir, "sess-old")
	newer := writeTranscript(t, projectDir, "sess-new")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	got, err := w.ActiveSessionFile()
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}

func TestActiveSessionFileMissingProjectDir(t *testing.T) {
	w, _ := newTestWorkspace(t)

	_, err := w.ActiveSessionFile()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProjectDir)
}

func TestActiveSessionFileEmptyProjectDir(t *testing.T) {
	w, projectDir := newTestWorkspace(t)
	require.NoError(t, os.MkdirAll(projectDir, 0o755))

	_, err := w.ActiveSessionFile()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSessionFile)
}

func TestSnapshotParsesActiveSession(t *testing.T) {
	w, projectDir := newTestWorkspace(t)
	writeFile(t, filepath.Join(w.Root(), "main.go"), "package main\n")
	path := writeTranscript(t, projectDir, "sess-1")

	snap, err := w.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, path, snap.SessionFile)
	assert.Equal(t, "sess-1", snap.SessionID)
	require.NotNil(t, snap.Session)
	assert.Equal(t, 1, snap.Session.Len())
	assert.Equal(t, map[string]string{"main.go": "package main\n"}, snap.Files)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestSnapshotWithSessionResolvesById(t *testing.T) {
	w, projectDir := newTestWorkspace(t)

	writeTranscript(t, projectDir, "sess-other")
	want := writeTranscript(t, projectDir, "sess-target")

	snap, err := w.SnapshotWithSession("sess-target")
	require.NoError(t, err)

	assert.Equal(t, want, snap.SessionFile)
	assert.Equal(t, "sess-target", snap.SessionID)
	require.NotNil(t, snap.Session)
	assert.Equal(t, "sess-target", snap.Session.SessionID)
}

func TestSnapshotWithSessionMissingTranscript(t *testing.T) {
	w, _ := newTestWorkspace(t)

	snap, err := w.SnapshotWithSession("sess-ghost")
	require.NoError(t, err)

	assert.Equal(t, NoSessionFile, snap.SessionFile)
	assert.Equal(t, "sess-ghost", snap.SessionID)
	assert.Nil(t, snap.Session)
}
