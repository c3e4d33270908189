package agent

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/claudetrail/internal/transcript"
	"github.com/blackwell-systems/claudetrail/internal/workspace"
)

func parseSession(t *testing.T, jsonl string) *transcript.Session {
	t.Helper()
	var p transcript.Parser
	s, err := p.Parse(strings.NewReader(jsonl))
	require.NoError(t, err)
	return s
}

const beforeTurn = `{"type":"user","uuid":"u1","timestamp":"2025-06-01T10:00:00Z","sessionId":"sess-1","message":{"role":"user","content":"start"}}
{"type":"assistant","uuid":"a1","timestamp":"2025-06-01T10:00:05Z","sessionId":"sess-1","message":{"role":"assistant","content":"hello"}}
`

// afterTurn replays the first turn under the resumed session id and adds a
// second turn that runs Bash.
const afterTurn = `{"type":"user","uuid":"u1","timestamp":"2025-06-01T10:00:00Z","sessionId":"sess-2","message":{"role":"user","content":"start"}}
{"type":"assistant","uuid":"a1","timestamp":"2025-06-01T10:00:05Z","sessionId":"sess-2","message":{"role":"assistant","content":"hello"}}
{"type":"user","uuid":"u2","timestamp":"2025-06-01T10:01:00Z","sessionId":"sess-2","message":{"role":"user","content":"list files"}}
{"type":"assistant","uuid":"a2","timestamp":"2025-06-01T10:01:05Z","sessionId":"sess-2","message":{"role":"assistant","content":[{"type":"text","text":"running"},{"type":"tool_use","id":"tu-9","name":"Bash","input":{"command":"ls"}}]}}
{"type":"user","uuid":"u3","timestamp":"2025-06-01T10:01:08Z","sessionId":"sess-2","isMeta":true,"message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu-9","content":"main.go"}]}}
`

const afterTurnWithError = `{"type":"user","uuid":"u2","timestamp":"2025-06-01T10:01:00Z","sessionId":"sess-2","message":{"role":"user","content":"break"}}
{"type":"assistant","uuid":"a2","timestamp":"2025-06-01T10:01:05Z","sessionId":"sess-2","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu-1","name":"Edit","input":{}}]}}
{"type":"user","uuid":"u3","timestamp":"2025-06-01T10:01:08Z","sessionId":"sess-2","isMeta":true,"message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu-1","content":"no such file","is_error":true}]}}
`

func TestNewMessagesComparedByUUID(t *testing.T) {
	tr := &Transition{
		Before: workspace.Snapshot{Session: parseSession(t, beforeTurn)},
		After:  workspace.Snapshot{Session: parseSession(t, afterTurn)},
	}

	got := tr.NewMessages()
	require.Len(t, got, 3)
	assert.Equal(t, "u2", got[0].UUID)
	assert.Equal(t, "a2", got[1].UUID)
	assert.Equal(t, "u3", got[2].UUID)
}

func TestNewMessagesFirstTurnTakesEverything(t *testing.T) {
	tr := &Transition{
		Before: workspace.Snapshot{SessionFile: workspace.NoSessionFile, SessionID: workspace.PreConversationSessionID},
		After:  workspace.Snapshot{Session: parseSession(t, afterTurn)},
	}
	assert.Len(t, tr.NewMessages(), 5)
}

func TestNewMessagesWithoutAfterSession(t *testing.T) {
	tr := &Transition{After: workspace.Snapshot{SessionFile: workspace.NoSessionFile}}
	assert.Empty(t, tr.NewMessages())
}

func TestToolsUsedAndExecutions(t *testing.T) {
	tr := &Transition{
		Before: workspace.Snapshot{Session: parseSession(t, beforeTurn)},
		After:  workspace.Snapshot{Session: parseSession(t, afterTurn)},
	}

	assert.Equal(t, []string{"Bash"}, tr.ToolsUsed())
	assert.False(t, tr.HasToolErrors())

	execs := tr.ToolExecutions()
	require.Len(t, execs, 1)
	assert.Equal(t, "Bash", execs[0].ToolName)
	assert.True(t, execs[0].HasResult)
	assert.Equal(t, "main.go", execs[0].Output)
	assert.True(t, execs[0].Succeeded())
}

func TestHasToolErrors(t *testing.T) {
	tr := &Transition{
		After: workspace.Snapshot{Session: parseSession(t, afterTurnWithError)},
	}

	assert.True(t, tr.HasToolErrors())

	execs := tr.ToolExecutions()
	require.Len(t, execs, 1)
	assert.True(t, execs[0].IsError)
	assert.False(t, execs[0].Succeeded())
}

func TestFileChangeHelpers(t *testing.T) {
	tr := &Transition{
		Before: workspace.Snapshot{Files: map[string]string{
			"kept.go":    "same",
			"changed.go": "old",
			"gone.md":    "bye",
		}},
		After: workspace.Snapshot{Files: map[string]string{
			"kept.go":    "same",
			"changed.go": "new",
			"added.go":   "hi",
		}},
	}

	assert.Equal(t, []string{"added.go"}, tr.FilesCreated())
	assert.Equal(t, []string{"gone.md"}, tr.FilesDeleted())
	assert.Equal(t, []string{"changed.go"}, tr.FilesModified())
	assert.Equal(t, []string{"added.go", "changed.go", "gone.md"}, tr.AllFilesChanged())
}

func TestTransitionJSONRoundTrip(t *testing.T) {
	tr := &Transition{
		ID: uuid.New(),
		Before: workspace.Snapshot{
			Files:       map[string]string{"main.go": "package main\n"},
			SessionFile: workspace.NoSessionFile,
			SessionID:   workspace.PreConversationSessionID,
			Timestamp:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		},
		Prompt:     Prompt{Text: "hello"},
		Execution:  Execution{Response: "ok", SessionID: "sess-1", CostUSD: 0.01, DurationMS: 1200, Model: "sonnet", Timestamp: time.Date(2025, 6, 1, 10, 0, 30, 0, time.UTC)},
		After:      workspace.Snapshot{Session: parseSession(t, afterTurn), SessionFile: "sess-2.jsonl", SessionID: "sess-2"},
		RecordedAt: time.Date(2025, 6, 1, 10, 0, 31, 0, time.UTC),
		Metadata:   map[string]string{"conversation_id": "c-1"},
	}

	data, err := json.Marshal(tr)
	require.NoError(t, err)

	var back Transition
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, tr.ID, back.ID)
	assert.Equal(t, workspace.NoSessionFile, back.Before.SessionFile)
	assert.Equal(t, workspace.PreConversationSessionID, back.Before.SessionID)
	assert.Equal(t, tr.Execution, back.Execution)
	assert.Equal(t, tr.Metadata, back.Metadata)
	require.NotNil(t, back.After.Session)
	assert.Equal(t, 5, back.After.Session.Len())
	assert.Len(t, back.NewMessages(), 5)
}
