package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the index schema up to date.
func (db *DB) Migrate() error {
	// Create the schema_version table if it does not exist.
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means version 0 (fresh database).
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates the session index tables.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id         TEXT PRIMARY KEY,
			project_path       TEXT NOT NULL,
			project_name       TEXT NOT NULL,
			file_path          TEXT NOT NULL,
			start_time         TEXT,
			end_time           TEXT,
			duration_seconds   REAL NOT NULL,
			message_count      INTEGER NOT NULL,
			user_messages      INTEGER NOT NULL,
			assistant_messages INTEGER NOT NULL,
			cost_usd           REAL NOT NULL,
			indexed_at         TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS session_tools (
			session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
			tool       TEXT NOT NULL,
			count      INTEGER NOT NULL,
			PRIMARY KEY (session_id, tool)
		)`,

		// Indexes.
		`CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_path)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_session_tools_tool ON session_tools(tool)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	// Set schema version.
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}
