package persistence

import (
	"context"
	"fmt"
)

// SaveMessage appends one conversation turn to a session's history.
func (s *SQLiteStore) SaveMessage(ctx context.Context, sessionID, role, content string) error {
	if role != "user" && role != "assistant" {
		return fmt.Errorf("invalid message role %q", role)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_history (session_id, role, content)
		VALUES (?, ?, ?)
	`, sessionID, role, content)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// GetHistory returns a session's conversation turns in chronological order.
func (s *SQLiteStore) GetHistory(ctx context.Context, sessionID string) ([]ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, timestamp
		FROM conversation_history WHERE session_id = ? ORDER BY timestamp, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var turns []ConversationTurn
	for rows.Next() {
		var turn ConversationTurn
		if err := rows.Scan(&turn.Role, &turn.Content, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}
