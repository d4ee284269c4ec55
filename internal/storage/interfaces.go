// Package storage provides the external persistence interfaces for Reverie.
//
// The core only needs one thing persisted: chat turns. The interface is
// small so it can be implemented by SQLite (the default), Postgres, or an
// in-memory store in tests.
package storage

import (
	"context"
	"errors"

	"github.com/scrypster/reverie/pkg/types"
)

// ErrNotFound indicates that the requested resource was not found.
var ErrNotFound = errors.New("resource not found")

// TurnStore persists chat turns and reads back bounded recent history.
type TurnStore interface {
	// Append stores one completed turn.
	Append(ctx context.Context, turn *types.Turn) error

	// ListRecent returns up to limit turns for a session, most recent
	// first.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]types.Turn, error)

	// DeleteSession removes all turns for a session. Unknown sessions are
	// a no-op.
	DeleteSession(ctx context.Context, sessionID string) error

	// Close releases any resources held by the store.
	Close() error
}
