package transcript

import (
	"strings"
	"time"
)

// SummaryRecord is a summary line Claude Code appends to a transcript,
// pointing at the leaf message it summarizes.
type SummaryRecord struct {
	Summary  string `json:"summary"`
	LeafUUID string `json:"leaf_uuid,omitempty"`
}

// Session is the parsed representation of one transcript. Messages keep file
// order, which is authoritative for history reconstruction and for start and
// end times. Sessions are immutable after parsing; every aggregate below is
// recomputed on demand.
type Session struct {
	SessionID      string          `json:"session_id"`
	Path           string          `json:"path,omitempty"`
	Messages       []Message       `json:"messages"`
	Summaries      []SummaryRecord `json:"summaries,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
	SkippedRecords int             `json:"skipped_records,omitempty"`
}

// Len returns the number of messages.
func (s *Session) Len() int {
	return len(s.Messages)
}

// At returns the message at position i. Negative indices count from the end,
// so At(-1) is the last message. The bool is false when i is out of range.
func (s *Session) At(i int) (*Message, bool) {
	n := len(s.Messages)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, false
	}
	return &s.Messages[i], true
}

// Slice returns messages in [lo, hi). Negative bounds count from the end and
// out-of-range bounds clamp, so misuse degrades to an empty result.
func (s *Session) Slice(lo, hi int) []Message {
	n := len(s.Messages)
	if lo < 0 {
		lo += n
	}
	if hi < 0 {
		hi += n
	}
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo >= hi {
		return nil
	}
	return s.Messages[lo:hi]
}

// UserMessageCount returns the number of user-role messages.
func (s *Session) UserMessageCount() int {
	return s.countRole(RoleUser)
}

// AssistantMessageCount returns the number of assistant-role messages.
func (s *Session) AssistantMessageCount() int {
	return s.countRole(RoleAssistant)
}

func (s *Session) countRole(role string) int {
	n := 0
	for i := range s.Messages {
		if s.Messages[i].Role == role {
			n++
		}
	}
	return n
}

// StartTime returns the timestamp of the first message in file order, or the
// zero time for a session with no messages.
func (s *Session) StartTime() time.Time {
	if len(s.Messages) == 0 {
		return time.Time{}
	}
	return s.Messages[0].Timestamp
}

// EndTime returns the timestamp of the last message in file order.
func (s *Session) EndTime() time.Time {
	if len(s.Messages) == 0 {
		return time.Time{}
	}
	return s.Messages[len(s.Messages)-1].Timestamp
}

// Duration is EndTime minus StartTime. It is wall-clock span, derived from
// the first and last timestamps only; per-message DurationMS never enters
// into it.
func (s *Session) Duration() time.Duration {
	if len(s.Messages) == 0 {
		return 0
	}
	return s.EndTime().Sub(s.StartTime())
}

// TotalCost sums cost_usd over all messages that carry one.
func (s *Session) TotalCost() float64 {
	total := 0.0
	for i := range s.Messages {
		total += s.Messages[i].CostUSD
	}
	return total
}

// ToolUsageSummary maps tool name to the number of tool_use blocks across
// all messages.
func (s *Session) ToolUsageSummary() map[string]int {
	summary := make(map[string]int)
	for i := range s.Messages {
		for _, name := range s.Messages[i].ToolNames() {
			summary[name]++
		}
	}
	return summary
}

// MessagesByRole returns messages with the given role in file order. Unknown
// roles yield an empty result, never an error.
func (s *Session) MessagesByRole(role string) []Message {
	return s.FilterMessages(func(m *Message) bool { return m.Role == role })
}

// FilterMessages returns messages satisfying pred, in file order.
func (s *Session) FilterMessages(pred func(*Message) bool) []Message {
	var out []Message
	for i := range s.Messages {
		if pred(&s.Messages[i]) {
			out = append(out, s.Messages[i])
		}
	}
	return out
}

// MessageByUUID returns the message with the given uuid.
func (s *Session) MessageByUUID(uuid string) (*Message, bool) {
	for i := range s.Messages {
		if s.Messages[i].UUID == uuid {
			return &s.Messages[i], true
		}
	}
	return nil, false
}

// History renders a human-readable transcript, one "Role: text" line per
// message. Only text content appears; thinking blocks are excluded, and
// messages with no text (pure tool traffic) are skipped.
func (s *Session) History() string {
	var b strings.Builder
	for i := range s.Messages {
		m := &s.Messages[i]
		text := m.Text()
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(roleLabel(m.Role))
		b.WriteString(": ")
		b.WriteString(text)
	}
	return b.String()
}

func roleLabel(role string) string {
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

// ConversationTree is the parent/child structure of a session's messages,
// including sidechain edges. Children appear in file order.
type ConversationTree struct {
	Roots    []string
	Children map[string][]string
}

// ConversationTree builds the tree from parent_uuid edges. A message whose
// parent is absent from this transcript (common in resumed sessions) counts
// as a root.
func (s *Session) ConversationTree() *ConversationTree {
	t := &ConversationTree{Children: make(map[string][]string)}
	known := make(map[string]bool, len(s.Messages))
	for i := range s.Messages {
		known[s.Messages[i].UUID] = true
	}
	for i := range s.Messages {
		m := &s.Messages[i]
		if m.ParentUUID == "" || !known[m.ParentUUID] {
			t.Roots = append(t.Roots, m.UUID)
			continue
		}
		t.Children[m.ParentUUID] = append(t.Children[m.ParentUUID], m.UUID)
	}
	return t
}
