package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite opens the journal database and creates its schema.
// maxOpen and maxIdle <= 0 keep the driver defaults.
func InitSQLite(dbPath string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sqlx.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS journal (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			ts_ms INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			region_id INTEGER NOT NULL DEFAULT 0,
			unit_id INTEGER NOT NULL DEFAULT 0,
			frame INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL DEFAULT 'null'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_session ON journal(session_id, ts_ms);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_type ON journal(event_type);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_region ON journal(region_id);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
