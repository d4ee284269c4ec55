// Package sqlite implements the turn store on SQLite via the pure-Go
// modernc.org/sqlite driver, so the default deployment needs no cgo and no
// external database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/scrypster/reverie/internal/storage"
	"github.com/scrypster/reverie/pkg/types"
)

// TurnStore is the SQLite-backed storage.TurnStore implementation.
type TurnStore struct {
	db *sql.DB
}

// NewTurnStore opens (creating if necessary) the turn database at path and
// bootstraps the schema.
func NewTurnStore(path string) (*TurnStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// SQLite handles one writer at a time; serialize at the pool level.
	db.SetMaxOpenConns(1)

	store := &TurnStore{db: db}
	if err := store.bootstrap(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *TurnStore) bootstrap() error {
	schema := `
		CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			ai_response TEXT NOT NULL,
			context_used INTEGER NOT NULL DEFAULT 0,
			relevant_count INTEGER NOT NULL DEFAULT 0,
			processing_time_ms INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_turns_session_created
			ON turns(session_id, created_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: bootstrap schema: %w", err)
	}
	return nil
}

// Append stores one completed turn.
func (s *TurnStore) Append(ctx context.Context, turn *types.Turn) error {
	if turn.SessionID == "" {
		return fmt.Errorf("sqlite: turn session_id is required")
	}
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (session_id, user_message, ai_response, context_used, relevant_count, processing_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, turn.SessionID, turn.UserMessage, turn.AIResponse, boolToInt(turn.ContextUsed), turn.RelevantCount, turn.ProcessingTimeMs, createdAt)
	if err != nil {
		return fmt.Errorf("sqlite: append turn: %w", err)
	}
	return nil
}

// ListRecent returns up to limit turns for a session, most recent first.
func (s *TurnStore) ListRecent(ctx context.Context, sessionID string, limit int) ([]types.Turn, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_message, ai_response, context_used, relevant_count, processing_time_ms, created_at
		FROM turns
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []types.Turn
	for rows.Next() {
		var turn types.Turn
		var contextUsed int
		if err := rows.Scan(&turn.SessionID, &turn.UserMessage, &turn.AIResponse, &contextUsed, &turn.RelevantCount, &turn.ProcessingTimeMs, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan turn: %w", err)
		}
		turn.ContextUsed = contextUsed != 0
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list rows: %w", err)
	}
	return turns, nil
}

// DeleteSession removes all turns for a session.
func (s *TurnStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("sqlite: delete session turns: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *TurnStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time assertion.
var _ storage.TurnStore = (*TurnStore)(nil)
