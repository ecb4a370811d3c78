package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magentic-ai/magentic/internal/engine"
)

// SaveRun inserts or updates a run. Upserts are idempotent so a retried
// save never duplicates a row.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, session_id, query, description, answer, status, depth, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			answer = excluded.answer,
			status = excluded.status
	`, run.ID, run.SessionID, run.Query, run.Description, run.Answer, run.Status, run.Depth)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// FinishRun marks a run terminal and records its final answer.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID, status, answer string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, answer = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, answer, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finish result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %q not found", runID)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	run := &Run{}
	var description, answer sql.NullString
	var finishedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, query, description, answer, status, depth, created_at, finished_at
		FROM runs WHERE id = ?
	`, runID).Scan(&run.ID, &run.SessionID, &run.Query, &description, &answer, &run.Status, &run.Depth, &run.CreatedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Description = description.String
	run.Answer = answer.String
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, query, description, answer, status, depth, created_at, finished_at
		FROM runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var description, answer sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.SessionID, &run.Query, &description, &answer, &run.Status, &run.Depth, &run.CreatedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Description = description.String
		run.Answer = answer.String
		if finishedAt.Valid {
			run.FinishedAt = finishedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveTrace persists the full execution trace of a run in one transaction.
func (s *SQLiteStore) SaveTrace(ctx context.Context, runID string, trace []engine.TraceEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range trace {
		errStr := ""
		if ev.Err != nil {
			errStr = ev.Err.Error()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trace_events (run_id, task_index, role, task, layer, status, error, start_time, end_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, ev.Index, ev.Role, ev.Task, ev.Layer, ev.Status.String(), errStr, ev.StartTime, ev.EndTime)
		if err != nil {
			return fmt.Errorf("failed to insert trace event for task %d: %w", ev.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trace: %w", err)
	}
	return nil
}

// GetTrace returns a run's trace ordered by layer then task index.
func (s *SQLiteStore) GetTrace(ctx context.Context, runID string) ([]TraceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, task_index, role, task, layer, status, error, start_time, end_time
		FROM trace_events WHERE run_id = ? ORDER BY layer, task_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trace: %w", err)
	}
	defer rows.Close()

	var records []TraceRecord
	for rows.Next() {
		var rec TraceRecord
		var errStr sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.Index, &rec.Role, &rec.Task, &rec.Layer, &rec.Status, &errStr, &rec.StartTime, &rec.EndTime); err != nil {
			return nil, fmt.Errorf("failed to scan trace event: %w", err)
		}
		rec.Error = errStr.String
		records = append(records, rec)
	}
	return records, rows.Err()
}
