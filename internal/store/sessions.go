package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound means the index has no row for the requested session.
var ErrNotFound = errors.New("session not indexed")

// timeFromColumn parses the RFC3339 text columns; empty means unknown.
func timeFromColumn(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func timeToColumn(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// UpsertSession inserts or replaces one session and its tool counts.
func (db *DB) UpsertSession(row SessionRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	indexedAt := row.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now().UTC()
	}

	if _, err := tx.Exec(
		`INSERT INTO sessions
		(session_id, project_path, project_name, file_path, start_time, end_time,
		 duration_seconds, message_count, user_messages, assistant_messages, cost_usd, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			project_path = excluded.project_path,
			project_name = excluded.project_name,
			file_path = excluded.file_path,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			duration_seconds = excluded.duration_seconds,
			message_count = excluded.message_count,
			user_messages = excluded.user_messages,
			assistant_messages = excluded.assistant_messages,
			cost_usd = excluded.cost_usd,
			indexed_at = excluded.indexed_at`,
		row.SessionID, row.ProjectPath, row.ProjectName, row.FilePath,
		timeToColumn(row.StartTime), timeToColumn(row.EndTime),
		row.DurationSeconds, row.MessageCount, row.UserMessages,
		row.AssistantMessages, row.CostUSD, timeToColumn(indexedAt),
	); err != nil {
		return fmt.Errorf("upsert session %s: %w", row.SessionID, err)
	}

	if _, err := tx.Exec("DELETE FROM session_tools WHERE session_id = ?", row.SessionID); err != nil {
		return err
	}
	for tool, count := range row.Tools {
		if _, err := tx.Exec(
			"INSERT INTO session_tools (session_id, tool, count) VALUES (?, ?, ?)",
			row.SessionID, tool, count,
		); err != nil {
			return fmt.Errorf("upsert tools for %s: %w", row.SessionID, err)
		}
	}

	return tx.Commit()
}

const sessionColumns = `session_id, project_path, project_name, file_path,
	start_time, end_time, duration_seconds, message_count, user_messages,
	assistant_messages, cost_usd, indexed_at`

func scanSessionRow(scan func(dest ...any) error) (SessionRow, error) {
	var row SessionRow
	var start, end, indexed string
	err := scan(
		&row.SessionID, &row.ProjectPath, &row.ProjectName, &row.FilePath,
		&start, &end, &row.DurationSeconds, &row.MessageCount,
		&row.UserMessages, &row.AssistantMessages, &row.CostUSD, &indexed,
	)
	if err != nil {
		return SessionRow{}, err
	}
	row.StartTime = timeFromColumn(start)
	row.EndTime = timeFromColumn(end)
	row.IndexedAt = timeFromColumn(indexed)
	return row, nil
}

// ListSessions returns indexed sessions ordered by start time. An empty
// projectPath lists every project.
func (db *DB) ListSessions(projectPath string) ([]SessionRow, error) {
	query := "SELECT " + sessionColumns + " FROM sessions"
	var args []any
	if projectPath != "" {
		query += " WHERE project_path = ?"
		args = append(args, projectPath)
	}
	query += " ORDER BY start_time, session_id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SessionRow
	for rows.Next() {
		row, err := scanSessionRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetSession returns one indexed session with its tool counts.
func (db *DB) GetSession(sessionID string) (*SessionRow, error) {
	row, err := scanSessionRow(db.conn.QueryRow(
		"SELECT "+sessionColumns+" FROM sessions WHERE session_id = ?", sessionID,
	).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}

	tools, err := db.conn.Query(
		"SELECT tool, count FROM session_tools WHERE session_id = ?", sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tools.Close() }()

	row.Tools = make(map[string]int)
	for tools.Next() {
		var tool string
		var count int
		if err := tools.Scan(&tool, &count); err != nil {
			return nil, err
		}
		row.Tools[tool] = count
	}
	return &row, tools.Err()
}

// ProjectSummaries rolls up sessions per project, most expensive first.
func (db *DB) ProjectSummaries() ([]ProjectSummary, error) {
	rows, err := db.conn.Query(
		`SELECT project_path, project_name, COUNT(*), SUM(message_count),
		 SUM(cost_usd), COALESCE(MAX(end_time), '')
		 FROM sessions GROUP BY project_path, project_name
		 ORDER BY SUM(cost_usd) DESC, project_path`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ProjectSummary
	for rows.Next() {
		var s ProjectSummary
		var last string
		if err := rows.Scan(&s.ProjectPath, &s.ProjectName, &s.Sessions, &s.Messages, &s.CostUSD, &last); err != nil {
			return nil, err
		}
		s.LastActivity = timeFromColumn(last)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ToolTotals sums tool invocations across every indexed session.
func (db *DB) ToolTotals() ([]ToolTotal, error) {
	rows, err := db.conn.Query(
		`SELECT tool, SUM(count) FROM session_tools
		 GROUP BY tool ORDER BY SUM(count) DESC, tool`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ToolTotal
	for rows.Next() {
		var t ToolTotal
		if err := rows.Scan(&t.Tool, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// IndexTotals summarizes the whole index.
func (db *DB) IndexTotals() (Totals, error) {
	var t Totals
	err := db.conn.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(message_count), 0), COALESCE(SUM(cost_usd), 0) FROM sessions",
	).Scan(&t.Sessions, &t.Messages, &t.CostUSD)
	return t, err
}
