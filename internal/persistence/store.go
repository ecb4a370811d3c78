// Package persistence stores run history: one row per orchestration run,
// its flat execution trace, and per-session conversation turns.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/magentic-ai/magentic/internal/engine"
	_ "modernc.org/sqlite"
)

// Run is one recorded orchestration run.
type Run struct {
	ID          string
	SessionID   string
	Query       string
	Description string
	Answer      string
	Status      string // "running", "completed", "failed"
	Depth       int
	CreatedAt   time.Time
	FinishedAt  time.Time
}

// TraceRecord is a persisted trace event.
type TraceRecord struct {
	RunID     string
	Index     int
	Role      string
	Task      string
	Layer     int
	Status    string
	Error     string
	StartTime time.Time
	EndTime   time.Time
}

// ConversationTurn is a single message in a session's history.
type ConversationTurn struct {
	Role      string // "user" or "assistant"
	Content   string
	Timestamp time.Time
}

// Store defines the persistence interface for runs, traces, and
// conversation history.
type Store interface {
	SaveRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, runID, status, answer string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	SaveTrace(ctx context.Context, runID string, trace []engine.TraceEvent) error
	GetTrace(ctx context.Context, runID string) ([]TraceRecord, error)

	SaveMessage(ctx context.Context, sessionID, role, content string) error
	GetHistory(ctx context.Context, sessionID string) ([]ConversationTurn, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode, foreign keys,
// and a busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return initStore(ctx, db)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file::memory:?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	return initStore(ctx, db)
}

func initStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	// PRAGMA required for modernc.org/sqlite; connection-string flags
	// don't cover foreign keys.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
