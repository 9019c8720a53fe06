package database

import (
	"database/sql"
	"fmt"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		lead_id TEXT NOT NULL,
		idempotency_key TEXT NOT NULL,
		event_type TEXT NOT NULL,
		email TEXT NOT NULL,
		name TEXT,
		phone TEXT,
		value REAL NOT NULL DEFAULT 0,
		currency TEXT,
		source_type TEXT,
		consent_state TEXT,
		session_id TEXT,
		page_url TEXT,
		device TEXT,
		client_ip TEXT,
		payload TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		received_at TEXT NOT NULL
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_leads_received_at ON leads(received_at)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_lead_id ON leads(lead_id)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_idempotency_key ON leads(idempotency_key)`,
}

// TableCreator builds the archive schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all table and index statements. Every statement is
// idempotent.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}
