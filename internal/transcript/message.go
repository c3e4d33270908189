package transcript

import (
	"strings"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TokenUsage is the token accounting attached to executed turns.
type TokenUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Message is one user or assistant record of a transcript. Ordering within a
// session follows file order, which is authoritative regardless of
// timestamps. CostUSD and DurationMS are zero on turns that did not execute;
// aggregation treats zero as absent.
type Message struct {
	UUID        string         `json:"uuid"`
	ParentUUID  string         `json:"parent_uuid,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Role        string         `json:"role"`
	RecordType  string         `json:"record_type"`
	SessionID   string         `json:"session_id"`
	CWD         string         `json:"cwd,omitempty"`
	UserType    string         `json:"user_type,omitempty"`
	IsSidechain bool           `json:"is_sidechain,omitempty"`
	IsMeta      bool           `json:"is_meta,omitempty"`
	Content     []ContentBlock `json:"content"`
	Model       string         `json:"model,omitempty"`
	StopReason  string         `json:"stop_reason,omitempty"`
	Usage       *TokenUsage    `json:"usage,omitempty"`
	CostUSD     float64        `json:"cost_usd,omitempty"`
	DurationMS  int64          `json:"duration_ms,omitempty"`
}

// Text concatenates the message's text blocks with newlines. Thinking blocks
// and unrecognized blocks are excluded.
func (m *Message) Text() string {
	var parts []string
	for i := range m.Content {
		b := &m.Content[i]
		if b.Type == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// TextBlocks returns the message's text blocks in order.
func (m *Message) TextBlocks() []ContentBlock {
	return m.blocksOfType(BlockText)
}

// ToolBlocks returns the message's tool_use blocks in order.
func (m *Message) ToolBlocks() []ContentBlock {
	return m.blocksOfType(BlockToolUse)
}

// HasToolUse reports whether the message contains any tool_use block.
func (m *Message) HasToolUse() bool {
	for i := range m.Content {
		if m.Content[i].Type == BlockToolUse {
			return true
		}
	}
	return false
}

// ToolNames returns the names of the message's tool_use blocks in order.
func (m *Message) ToolNames() []string {
	var names []string
	for i := range m.Content {
		if m.Content[i].Type == BlockToolUse {
			names = append(names, m.Content[i].Name)
		}
	}
	return names
}

// InputTokens returns the usage input tokens, or zero without usage data.
func (m *Message) InputTokens() int {
	if m.Usage == nil {
		return 0
	}
	return m.Usage.InputTokens
}

// OutputTokens returns the usage output tokens, or zero without usage data.
func (m *Message) OutputTokens() int {
	if m.Usage == nil {
		return 0
	}
	return m.Usage.OutputTokens
}

// TotalTokens returns input plus output tokens, or zero without usage data.
func (m *Message) TotalTokens() int {
	if m.Usage == nil {
		return 0
	}
	return m.Usage.Total()
}

func (m *Message) blocksOfType(t string) []ContentBlock {
	var out []ContentBlock
	for i := range m.Content {
		if m.Content[i].Type == t {
			out = append(out, m.Content[i])
		}
	}
	return out
}
