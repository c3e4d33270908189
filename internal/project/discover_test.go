package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
}

func TestFindSessions(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "alpha", "s1.jsonl"))
	touch(t, filepath.Join(root, "alpha", "s2.jsonl"))
	touch(t, filepath.Join(root, "beta", "s1.jsonl"))
	touch(t, filepath.Join(root, "beta", "nested", "deep.jsonl"))
	touch(t, filepath.Join(root, "gamma", "only.jsonl"))
	touch(t, filepath.Join(root, "gamma", "sibling.jsonl"))

	// Root-level files and non-transcript files never count.
	touch(t, filepath.Join(root, "stray.jsonl"))
	touch(t, filepath.Join(root, "another.jsonl"))
	touch(t, filepath.Join(root, "alpha", "notes.txt"))

	files, err := FindSessions(root)
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "alpha", "s1.jsonl"),
		filepath.Join(root, "alpha", "s2.jsonl"),
		filepath.Join(root, "beta", "nested", "deep.jsonl"),
		filepath.Join(root, "beta", "s1.jsonl"),
		filepath.Join(root, "gamma", "only.jsonl"),
		filepath.Join(root, "gamma", "sibling.jsonl"),
	}
	assert.Equal(t, want, files)
}

func TestFindSessionsMissingRoot(t *testing.T) {
	_, err := FindSessions(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFindSessionsEmptyRoot(t *testing.T) {
	files, err := FindSessions(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFindProjects(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "alpha", "s1.jsonl"))
	touch(t, filepath.Join(root, "alpha", "s2.jsonl"))
	touch(t, filepath.Join(root, "beta", "s1.jsonl"))
	touch(t, filepath.Join(root, "gamma", "only.jsonl"))
	touch(t, filepath.Join(root, "stray.jsonl"))
	touch(t, filepath.Join(root, "empty-dir-marker", "readme.md"))

	dirs, err := FindProjects(root)
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "alpha"),
		filepath.Join(root, "beta"),
		filepath.Join(root, "gamma"),
	}
	assert.Equal(t, want, dirs)
}

func TestFindProjectsMatchesSessionParents(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a", "1.jsonl"))
	touch(t, filepath.Join(root, "a", "2.jsonl"))
	touch(t, filepath.Join(root, "b", "sub", "3.jsonl"))

	files, err := FindSessions(root)
	require.NoError(t, err)
	dirs, err := FindProjects(root)
	require.NoError(t, err)

	parents := make(map[string]bool)
	for _, f := range files {
		parents[filepath.Dir(f)] = true
	}
	assert.Len(t, dirs, len(parents))
	for _, d := range dirs {
		assert.True(t, parents[d], "project %s has no sessions", d)
	}
}

func TestFindProjectsIncludesUnparseable(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken", "bad.jsonl"), []byte("not json\n"), 0o644))

	dirs, err := FindProjects(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "broken")}, dirs)
}
