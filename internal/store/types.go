package store

import (
	"time"

	"github.com/blackwell-systems/claudetrail/internal/transcript"
)

// SessionRow is one indexed session. Tools is populated by GetSession;
// listings leave it nil.
type SessionRow struct {
	SessionID         string         `json:"session_id"`
	ProjectPath       string         `json:"project_path"`
	ProjectName       string         `json:"project_name"`
	FilePath          string         `json:"file_path"`
	StartTime         time.Time      `json:"start_time"`
	EndTime           time.Time      `json:"end_time"`
	DurationSeconds   float64        `json:"duration_seconds"`
	MessageCount      int            `json:"message_count"`
	UserMessages      int            `json:"user_messages"`
	AssistantMessages int            `json:"assistant_messages"`
	CostUSD           float64        `json:"cost_usd"`
	IndexedAt         time.Time      `json:"indexed_at"`
	Tools             map[string]int `json:"tools,omitempty"`
}

// NewSessionRow flattens a parsed session into its indexed form.
func NewSessionRow(s *transcript.Session, projectPath, projectName string) SessionRow {
	return SessionRow{
		SessionID:         s.SessionID,
		ProjectPath:       projectPath,
		ProjectName:       projectName,
		FilePath:          s.Path,
		StartTime:         s.StartTime(),
		EndTime:           s.EndTime(),
		DurationSeconds:   s.Duration().Seconds(),
		MessageCount:      s.Len(),
		UserMessages:      s.UserMessageCount(),
		AssistantMessages: s.AssistantMessageCount(),
		CostUSD:           s.TotalCost(),
		Tools:             s.ToolUsageSummary(),
	}
}

// ProjectSummary rolls up one project's indexed sessions.
type ProjectSummary struct {
	ProjectPath  string    `json:"project_path"`
	ProjectName  string    `json:"project_name"`
	Sessions     int       `json:"sessions"`
	Messages     int       `json:"messages"`
	CostUSD      float64   `json:"cost_usd"`
	LastActivity time.Time `json:"last_activity"`
}

// ToolTotal is a cross-project tool usage rollup.
type ToolTotal struct {
	Tool  string `json:"tool"`
	Count int    `json:"count"`
}

// Totals summarizes the whole index.
type Totals struct {
	Sessions int     `json:"sessions"`
	Messages int     `json:"messages"`
	CostUSD  float64 `json:"cost_usd"`
}
