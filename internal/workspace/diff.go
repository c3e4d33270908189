package workspace

import (
	"slices"
	"sort"
)

// Diff is the file-level difference between two snapshots of the same
// workspace.
type Diff struct {
	Created  []string `json:"created"`
	Deleted  []string `json:"deleted"`
	Modified []string `json:"modified"`
}

// DiffSnapshots compares the tracked files of two snapshots. Created holds
// paths present only in after, Deleted paths present only in before, and
// Modified paths present in both with differing content. Each list is
// sorted.
func DiffSnapshots(before, after Snapshot) Diff {
	var d Diff
	for path, content := range after.Files {
		prev, ok := before.Files[path]
		switch {
		case !ok:
			d.Created = append(d.Created, path)
		case prev != content:
			d.Modified = append(d.Modified, path)
		}
	}
	for path := range before.Files {
		if _, ok := after.Files[path]; !ok {
			d.Deleted = append(d.Deleted, path)
		}
	}
	sort.Strings(d.Created)
	sort.Strings(d.Deleted)
	sort.Strings(d.Modified)
	return d
}

// All returns every changed path, sorted and deduplicated.
func (d Diff) All() []string {
	all := make([]string, 0, len(d.Created)+len(d.Deleted)+len(d.Modified))
	all = append(all, d.Created...)
	all = append(all, d.Deleted...)
	all = append(all, d.Modified...)
	sort.Strings(all)
	return slices.Compact(all)
}

// Empty reports whether the two snapshots had identical tracked files.
func (d Diff) Empty() bool {
	return len(d.Created) == 0 && len(d.Deleted) == 0 && len(d.Modified) == 0
}
