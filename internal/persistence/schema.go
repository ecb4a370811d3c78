package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		query TEXT NOT NULL,
		description TEXT,
		answer TEXT,
		status TEXT NOT NULL,
		depth INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_session_created ON runs(session_id, created_at);

	CREATE TABLE IF NOT EXISTS trace_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		task_index INTEGER NOT NULL,
		role TEXT NOT NULL,
		task TEXT NOT NULL,
		layer INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_trace_events_run ON trace_events(run_id, layer, task_index);

	CREATE TABLE IF NOT EXISTS conversation_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_conversation_history_session_timestamp
		ON conversation_history(session_id, timestamp);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
