package agent

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/claudetrail/internal/transcript"
	"github.com/blackwell-systems/claudetrail/internal/workspace"
)

// Transition is the immutable record of one agent turn: the workspace before
// the prompt, the prompt itself, the agent's execution, and the workspace
// after. Everything derived (new messages, tool usage, file changes) is
// computed from these on demand.
type Transition struct {
	ID         uuid.UUID          `json:"id"`
	Before     workspace.Snapshot `json:"before"`
	Prompt     Prompt             `json:"prompt"`
	Execution  Execution          `json:"execution"`
	After      workspace.Snapshot `json:"after"`
	RecordedAt time.Time          `json:"recorded_at"`
	Metadata   map[string]string  `json:"metadata,omitempty"`
}

// NewMessages returns the messages present in the after session but absent
// from the before session, compared by message UUID. On a first turn the
// before snapshot carries no session, so every message is new.
func (t *Transition) NewMessages() []transcript.Message {
	if t.After.Session == nil {
		return nil
	}
	seen := make(map[string]bool)
	if t.Before.Session != nil {
		for i := range t.Before.Session.Messages {
			seen[t.Before.Session.Messages[i].UUID] = true
		}
	}
	var out []transcript.Message
	for _, m := range t.After.Session.Messages {
		if !seen[m.UUID] {
			out = append(out, m)
		}
	}
	return out
}

// ToolsUsed returns the sorted distinct tool names invoked during this turn.
func (t *Transition) ToolsUsed() []string {
	set := make(map[string]bool)
	for _, m := range t.NewMessages() {
		for _, name := range m.ToolNames() {
			set[name] = true
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasToolErrors reports whether any tool result produced during this turn
// failed.
func (t *Transition) HasToolErrors() bool {
	for _, m := range t.NewMessages() {
		for _, b := range m.Content {
			if b.Type == transcript.BlockToolResult && b.IsError {
				return true
			}
		}
	}
	return false
}

// ToolExecutions pairs this turn's tool uses with their results.
func (t *Transition) ToolExecutions() []transcript.ToolExecution {
	turn := transcript.Session{Messages: t.NewMessages()}
	return turn.ToolExecutions()
}

// FilesCreated lists tracked files present after the turn but not before.
func (t *Transition) FilesCreated() []string { return t.diff().Created }

// FilesDeleted lists tracked files present before the turn but not after.
func (t *Transition) FilesDeleted() []string { return t.diff().Deleted }

// FilesModified lists tracked files whose content changed during the turn.
func (t *Transition) FilesModified() []string { return t.diff().Modified }

// AllFilesChanged lists every tracked path the turn touched, sorted.
func (t *Transition) AllFilesChanged() []string { return t.diff().All() }

func (t *Transition) diff() workspace.Diff {
	return workspace.DiffSnapshots(t.Before, t.After)
}
