package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffSnapshots(t *testing.T) {
	before := Snapshot{Files: map[string]string{
		"kept.go":    "same",
		"changed.go": "old body",
		"removed.md": "gone",
	}}
	after := Snapshot{Files: map[string]string{
		"kept.go":    "same",
		"changed.go": "new body",
		"b_new.go":   "b",
		"a_new.go":   "a",
	}}

	d := DiffSnapshots(before, after)

	assert.Equal(t, []string{"a_new.go", "b_new.go"}, d.Created)
	assert.Equal(t, []string{"removed.md"}, d.Deleted)
	assert.Equal(t, []string{"changed.go"}, d.Modified)
	assert.Equal(t, []string{"a_new.go", "b_new.go", "changed.go", "removed.md"}, d.All())
	assert.False(t, d.Empty())
}

func TestDiffSnapshotsNoChanges(t *testing.T) {
	snap := Snapshot{Files: map[string]string{"main.go": "package main\n"}}

	d := DiffSnapshots(snap, snap)

	assert.Empty(t, d.Created)
	assert.Empty(t, d.Deleted)
	assert.Empty(t, d.Modified)
	assert.Empty(t, d.All())
	assert.True(t, d.Empty())
}

func TestDiffSnapshotsEmptyBefore(t *testing.T) {
	before := Snapshot{}
	after := Snapshot{Files: map[string]string{"fresh.go": "x"}}

	d := DiffSnapshots(before, after)

	assert.Equal(t, []string{"fresh.go"}, d.Created)
	assert.Empty(t, d.Deleted)
	assert.Empty(t, d.Modified)
}
