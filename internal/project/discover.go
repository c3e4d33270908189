// Package project discovers transcripts on disk and aggregates them into
// queryable cross-session views.
package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindSessions recursively enumerates *.jsonl transcripts under root. Files
// directly at the root never qualify: only files inside at least one
// subdirectory count, so stray logs at the scan root are ignored. Results
// are sorted lexicographically. A missing root is an error (wrapping
// fs.ErrNotExist); a root with no matches yields an empty slice.
func FindSessions(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("session root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("session root %s: not a directory", root)
	}

	cleanRoot := filepath.Clean(root)
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		if filepath.Dir(path) == cleanRoot {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// FindProjects returns the sorted distinct parent directories of the
// transcripts FindSessions finds. A directory with no transcripts never
// appears, and discovery does not parse, so a corrupt transcript still
// marks its parent as a project.
func FindProjects(root string) ([]string, error) {
	files, err := FindSessions(root)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, f := range files {
		dir := filepath.Dir(f)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
