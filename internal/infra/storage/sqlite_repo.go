package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// DefaultRecentLimit caps Recent when the query does not.
const DefaultRecentLimit = 100

// SQLiteJournalRepository implements JournalRepository for SQLite.
type SQLiteJournalRepository struct {
	db *sqlx.DB
}

func NewSQLiteJournalRepository(db *sqlx.DB) *SQLiteJournalRepository {
	return &SQLiteJournalRepository{db: db}
}

func (r *SQLiteJournalRepository) Append(ctx context.Context, entry JournalEntry) error {
	if entry.Payload == "" {
		entry.Payload = "null"
	}

	query := `
		INSERT INTO journal (id, session_id, ts_ms, event_type, actor_id, region_id, unit_id, frame, payload)
		VALUES (:id, :session_id, :ts_ms, :event_type, :actor_id, :region_id, :unit_id, :frame, :payload)
	`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

func (r *SQLiteJournalRepository) Recent(ctx context.Context, q JournalQuery) ([]JournalEntry, error) {
	var where []string
	var args []interface{}
	if q.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if q.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, q.EventType)
	}
	if q.RegionID > 0 {
		where = append(where, "region_id = ?")
		args = append(args, q.RegionID)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query := `SELECT id, session_id, ts_ms, event_type, actor_id, region_id, unit_id, frame, payload FROM journal`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts_ms DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	entries := make([]JournalEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	return entries, nil
}

func (r *SQLiteJournalRepository) CountByType(ctx context.Context, sessionID string) ([]TypeCount, error) {
	query := `SELECT event_type, COUNT(*) AS n FROM journal WHERE session_id = ? GROUP BY event_type ORDER BY n DESC, event_type ASC`

	counts := make([]TypeCount, 0)
	if err := r.db.SelectContext(ctx, &counts, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return counts, nil
}
