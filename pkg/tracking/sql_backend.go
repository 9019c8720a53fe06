package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const visitorStorageSchema = `
	CREATE TABLE IF NOT EXISTS visitor_storage (
		visitor_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (visitor_id, key)
	)`

// SQLBackend persists one visitor's storage in a shared SQL table, so state
// outlives the process the way localStorage outlives a page reload. It works
// against any database/sql driver speaking SQLite dialect (sqlite3, libsql).
type SQLBackend struct {
	db        *sql.DB
	visitorID string
	timeout   time.Duration
}

// NewSQLBackend creates the table if needed and scopes reads and writes to
// visitorID.
func NewSQLBackend(db *sql.DB, visitorID string) (*SQLBackend, error) {
	if db == nil {
		return nil, errors.New("sql backend requires a database")
	}
	if visitorID == "" {
		return nil, errors.New("sql backend requires a visitor id")
	}
	if _, err := db.Exec(visitorStorageSchema); err != nil {
		return nil, fmt.Errorf("failed to create visitor_storage table: %w", err)
	}
	return &SQLBackend{db: db, visitorID: visitorID, timeout: 2 * time.Second}, nil
}

func (b *SQLBackend) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	var value string
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM visitor_storage WHERE visitor_id = ? AND key = ?`,
		b.visitorID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return value, true, nil
}

func (b *SQLBackend) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO visitor_storage (visitor_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (visitor_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.visitorID, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (b *SQLBackend) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	_, err := b.db.ExecContext(ctx,
		`DELETE FROM visitor_storage WHERE visitor_id = ? AND key = ?`,
		b.visitorID, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
