package transcript

import (
	"encoding/json"
	"sort"
	"time"
)

// ToolExecution pairs a tool_use block from an assistant message with the
// tool_result whose tool_use_id matches. A use with no matching result is
// still reported, with HasResult false.
type ToolExecution struct {
	ToolName  string          `json:"tool_name"`
	ToolUseID string          `json:"tool_use_id"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    string          `json:"output,omitempty"`
	HasResult bool            `json:"has_result"`
	IsError   bool            `json:"is_error,omitempty"`
	Duration  time.Duration   `json:"duration,omitempty"`
}

// Succeeded reports whether the execution completed without error.
func (e ToolExecution) Succeeded() bool {
	return e.HasResult && !e.IsError
}

// ToolExecutions derives an execution for every tool_use block in the
// session's assistant messages. The matching result is found by scanning
// forward through subsequent messages; results typically land in the
// immediately following record, often an internal user-role message.
func (s *Session) ToolExecutions() []ToolExecution {
	var execs []ToolExecution
	for i := range s.Messages {
		m := &s.Messages[i]
		if m.Role != RoleAssistant {
			continue
		}
		for j := range m.Content {
			b := &m.Content[j]
			if b.Type != BlockToolUse {
				continue
			}
			exec := ToolExecution{
				ToolName:  b.Name,
				ToolUseID: b.ID,
				Input:     b.Input,
			}
			if result, holder := s.findToolResult(i, b.ID); result != nil {
				exec.HasResult = true
				exec.IsError = result.IsError
				exec.Output = result.ResultText()
				if !m.Timestamp.IsZero() && !holder.Timestamp.IsZero() {
					exec.Duration = holder.Timestamp.Sub(m.Timestamp)
				}
			}
			execs = append(execs, exec)
		}
	}
	return execs
}

// findToolResult scans messages after index from for the nearest tool_result
// matching id, returning the block and the message carrying it.
func (s *Session) findToolResult(from int, id string) (*ContentBlock, *Message) {
	for j := from + 1; j < len(s.Messages); j++ {
		m := &s.Messages[j]
		for k := range m.Content {
			b := &m.Content[k]
			if b.Type == BlockToolResult && b.ToolUseID == id {
				return b, m
			}
		}
	}
	return nil, nil
}

// ToolStats aggregates execution outcomes for one tool.
type ToolStats struct {
	Tool      string  `json:"tool"`
	Uses      int     `json:"uses"`
	Results   int     `json:"results"`
	Errors    int     `json:"errors"`
	TotalSecs float64 `json:"total_secs"`
}

// ErrorRate returns errors over completed results.
func (t ToolStats) ErrorRate() float64 {
	if t.Results == 0 {
		return 0
	}
	return float64(t.Errors) / float64(t.Results)
}

// CollectToolStats aggregates tool executions across sessions, sorted by use
// count descending then name.
func CollectToolStats(sessions ...*Session) []ToolStats {
	byTool := make(map[string]*ToolStats)
	for _, s := range sessions {
		for _, exec := range s.ToolExecutions() {
			st, ok := byTool[exec.ToolName]
			if !ok {
				st = &ToolStats{Tool: exec.ToolName}
				byTool[exec.ToolName] = st
			}
			st.Uses++
			if exec.HasResult {
				st.Results++
				st.TotalSecs += exec.Duration.Seconds()
			}
			if exec.IsError {
				st.Errors++
			}
		}
	}

	stats := make([]ToolStats, 0, len(byTool))
	for _, st := range byTool {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Uses != stats[j].Uses {
			return stats[i].Uses > stats[j].Uses
		}
		return stats[i].Tool < stats[j].Tool
	})
	return stats
}
