package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/claudetrail/internal/workspace"
)

// DefaultSettleDelay is how long Send waits after the agent returns before
// taking the after snapshot, giving Claude Code time to flush the
// transcript.
const DefaultSettleDelay = 500 * time.Millisecond

// ConversationMetadata accumulates per-conversation rollups.
type ConversationMetadata struct {
	CreatedAt     time.Time `json:"created_at"`
	WorkspacePath string    `json:"workspace_path"`
	TotalCostUSD  float64   `json:"total_cost_usd"`
	TotalMessages int       `json:"total_messages"`
}

// ConversationOptions adjusts conversation behavior.
type ConversationOptions struct {
	// Record persists every transition to the workspace's transition store.
	Record bool

	// SettleDelay overrides DefaultSettleDelay.
	SettleDelay time.Duration

	// ResumeSessionID seeds the session chain so the first turn resumes an
	// existing Claude session instead of starting a fresh one.
	ResumeSessionID string
}

// Conversation threads successive agent turns through one workspace,
// keeping an append-only transition history. Claude assigns a fresh session
// id per execution, so the conversation chains them and always resumes the
// latest. A Conversation is not safe for concurrent Sends.
type Conversation struct {
	id          uuid.UUID
	ws          *workspace.Workspace
	runner      Runner
	transitions []*Transition
	sessionIDs  []string
	metadata    ConversationMetadata
	recorder    *Recorder
	settle      time.Duration
}

// savedConversation is the on-disk shape of a conversation.
type savedConversation struct {
	ID               uuid.UUID            `json:"id"`
	Transitions      []*Transition        `json:"transitions"`
	SessionIDs       []string             `json:"session_ids"`
	Metadata         ConversationMetadata `json:"metadata"`
	RecordingEnabled bool                 `json:"recording_enabled"`
}

// NewConversation starts an empty, unrecorded conversation in ws.
func NewConversation(ws *workspace.Workspace, runner Runner) *Conversation {
	c, _ := NewConversationWithOptions(ws, runner, ConversationOptions{})
	return c
}

// NewConversationWithOptions starts an empty conversation. It can only fail
// when recording is requested and the transition store cannot be created.
func NewConversationWithOptions(ws *workspace.Workspace, runner Runner, opts ConversationOptions) (*Conversation, error) {
	var rec *Recorder
	if opts.Record {
		r, err := NewRecorder(ws.Root())
		if err != nil {
			return nil, err
		}
		rec = r
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	var sessionIDs []string
	if opts.ResumeSessionID != "" {
		sessionIDs = []string{opts.ResumeSessionID}
	}
	return &Conversation{
		id:         uuid.New(),
		ws:         ws,
		runner:     runner,
		sessionIDs: sessionIDs,
		metadata: ConversationMetadata{
			CreatedAt:     time.Now().UTC(),
			WorkspacePath: ws.Root(),
		},
		recorder: rec,
		settle:   settle,
	}, nil
}

// Send runs one turn: snapshot the workspace, invoke the agent, wait for
// the transcript to settle, snapshot again, and append the resulting
// transition. A runner failure aborts the turn and leaves the conversation
// unchanged.
func (c *Conversation) Send(ctx context.Context, text string) (*Transition, error) {
	before, err := c.beforeSnapshot()
	if err != nil {
		return nil, err
	}

	prompt := Prompt{Text: text}
	if n := len(c.sessionIDs); n > 0 {
		// Resume the exact session rather than relying on --continue.
		prompt.ResumeSessionID = c.sessionIDs[n-1]
	}

	execution, err := c.runner.Run(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if err := sleepCtx(ctx, c.settle); err != nil {
		return nil, err
	}

	after, err := c.ws.SnapshotWithSession(execution.SessionID)
	if err != nil {
		return nil, err
	}

	transition := &Transition{
		ID:         uuid.New(),
		Before:     before,
		Prompt:     prompt,
		Execution:  execution,
		After:      after,
		RecordedAt: time.Now().UTC(),
		Metadata:   map[string]string{"conversation_id": c.id.String()},
	}

	c.sessionIDs = append(c.sessionIDs, execution.SessionID)
	c.metadata.TotalCostUSD += execution.CostUSD
	c.metadata.TotalMessages++
	c.transitions = append(c.transitions, transition)

	if c.recorder != nil {
		if err := c.recorder.Record(transition); err != nil {
			fmt.Fprintf(os.Stderr, "warning: record transition: %v\n", err)
		}
	}
	return transition, nil
}

// beforeSnapshot captures the pre-turn state. The first turn has no session
// to observe, so it takes a files-only capture marked with the sentinels.
func (c *Conversation) beforeSnapshot() (workspace.Snapshot, error) {
	if len(c.sessionIDs) == 0 {
		files, err := c.ws.SnapshotFiles()
		if err != nil {
			return workspace.Snapshot{}, err
		}
		return workspace.Snapshot{
			Files:       files,
			SessionFile: workspace.NoSessionFile,
			SessionID:   workspace.PreConversationSessionID,
			Timestamp:   time.Now().UTC(),
		}, nil
	}
	return c.ws.Snapshot()
}

// ID returns the conversation's unique id.
func (c *Conversation) ID() uuid.UUID { return c.id }

// History returns every transition in order. Callers must not modify it.
func (c *Conversation) History() []*Transition { return c.transitions }

// LastTransition returns the most recent transition, or nil before the
// first turn.
func (c *Conversation) LastTransition() *Transition {
	if len(c.transitions) == 0 {
		return nil
	}
	return c.transitions[len(c.transitions)-1]
}

// SessionIDs returns the chain of session ids, one per turn, preceded by
// the seed id when the conversation resumed an existing session.
func (c *Conversation) SessionIDs() []string { return c.sessionIDs }

// Metadata returns the conversation rollups.
func (c *Conversation) Metadata() ConversationMetadata { return c.metadata }

// TotalCost is the accumulated cost across all turns.
func (c *Conversation) TotalCost() float64 { return c.metadata.TotalCostUSD }

// Recording reports whether transitions are persisted.
func (c *Conversation) Recording() bool { return c.recorder != nil }

// Recorder exposes the transition store when recording is enabled.
func (c *Conversation) Recorder() *Recorder { return c.recorder }

// ToolsUsed returns the sorted distinct tool names used across all turns.
func (c *Conversation) ToolsUsed() []string {
	set := make(map[string]bool)
	for _, t := range c.transitions {
		for _, name := range t.ToolsUsed() {
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

// Save writes the conversation as indented JSON. The saved form is enough
// to reconstruct the conversation without re-invoking the agent.
func (c *Conversation) Save(path string) error {
	saved := savedConversation{
		ID:               c.id,
		Transitions:      c.transitions,
		SessionIDs:       c.sessionIDs,
		Metadata:         c.metadata,
		RecordingEnabled: c.recorder != nil,
	}
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// LoadConversation restores a saved conversation, reattaching it to ws and
// runner. Recording resumes when the save carried recording_enabled or
// opts request it.
func LoadConversation(path string, ws *workspace.Workspace, runner Runner, opts ConversationOptions) (*Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	var saved savedConversation
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}

	var rec *Recorder
	if opts.Record || saved.RecordingEnabled {
		r, err := NewRecorder(ws.Root())
		if err != nil {
			return nil, err
		}
		rec = r
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Conversation{
		id:          saved.ID,
		ws:          ws,
		runner:      runner,
		transitions: saved.Transitions,
		sessionIDs:  saved.SessionIDs,
		metadata:    saved.Metadata,
		recorder:    rec,
		settle:      settle,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
