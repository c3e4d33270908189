// Package workspace captures point-in-time snapshots of a working directory
// and resolves the Claude Code transcript that belongs to it.
package workspace

import (
	"path/filepath"
	"strings"
)

// EncodeProjectPath maps a filesystem path to the directory name Claude Code
// uses for it under <claude home>/projects. Every "/" becomes "-", and a
// "/." pair (hidden directory) collapses to "--":
//
//	/Users/d/Projects/apply-model -> -Users-d-Projects-apply-model
//	/Users/d/.claude              -> -Users-d--claude
func EncodeProjectPath(path string) string {
	var b strings.Builder
	b.Grow(len(path) + 4)
	for i := 0; i < len(path); i++ {
		if path[i] != '/' {
			b.WriteByte(path[i])
			continue
		}
		if i+1 < len(path) && path[i+1] == '.' {
			b.WriteString("--")
			i++
			continue
		}
		b.WriteByte('-')
	}
	return b.String()
}

// ProjectName extracts the final path segment of a workspace path.
func ProjectName(path string) string {
	base := filepath.Base(filepath.Clean(path))
	if base == "." || base == string(filepath.Separator) {
		return "unknown"
	}
	return base
}
