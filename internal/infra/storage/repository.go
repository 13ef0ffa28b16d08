// Package storage provides the persistence layer for the game server.
// The journal is write-mostly analytics; game state is never loaded back from it.
package storage

import (
	"context"
	"time"
)

// JournalEntry mirrors a game event for persistence.
// The domain packages should NOT import this; the engine only sees events.EventPersister.
type JournalEntry struct {
	ID          string `json:"id" db:"id"`
	SessionID   string `json:"session_id" db:"session_id"`
	TimestampMS int64  `json:"timestamp_ms" db:"ts_ms"`
	EventType   string `json:"event_type" db:"event_type"`
	ActorID     string `json:"actor_id" db:"actor_id"`
	RegionID    int    `json:"region_id" db:"region_id"`
	UnitID      int    `json:"unit_id" db:"unit_id"`
	Frame       int64  `json:"frame" db:"frame"`
	Payload     string `json:"payload" db:"payload"` // JSON text
}

// Time returns the entry timestamp.
func (e JournalEntry) Time() time.Time {
	return time.UnixMilli(e.TimestampMS)
}

// TypeCount is one row of a per-type histogram.
type TypeCount struct {
	EventType string `json:"event_type" db:"event_type"`
	Count     int    `json:"count" db:"n"`
}

// JournalQuery filters Recent. Zero values mean "any".
type JournalQuery struct {
	SessionID string
	EventType string
	RegionID  int
	Limit     int
}

// JournalRepository defines the interface for journal persistence.
type JournalRepository interface {
	// Append adds a new entry to the immutable journal.
	Append(ctx context.Context, entry JournalEntry) error

	// Recent returns the newest entries first.
	Recent(ctx context.Context, q JournalQuery) ([]JournalEntry, error)

	// CountByType returns how many entries of each type a session wrote.
	CountByType(ctx context.Context, sessionID string) ([]TypeCount, error)
}
