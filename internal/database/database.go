package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the relay's SQLite store: message id mappings, the
// execution audit log, and instance routing configuration.
type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS message_mappings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	instance_id TEXT NOT NULL,
	direction TEXT NOT NULL,
	chatwoot_message_id INTEGER NOT NULL,
	wa_message_id TEXT NOT NULL,
	stanza_id TEXT NOT NULL DEFAULT '',
	message_type TEXT NOT NULL,
	queue_key TEXT NOT NULL DEFAULT '',
	delivery_status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_mappings_wa_id ON message_mappings(wa_message_id);
CREATE INDEX IF NOT EXISTS idx_mappings_cw_id ON message_mappings(chatwoot_message_id);

CREATE TABLE IF NOT EXISTS event_executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	direction TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	instance_id TEXT NOT NULL DEFAULT '',
	contact_key TEXT NOT NULL DEFAULT '',
	queue_key TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_summary TEXT NOT NULL DEFAULT '',
	payload_summary TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_executions_tenant ON event_executions(tenant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_executions_status ON event_executions(status);

CREATE TABLE IF NOT EXISTS instances (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	api_token TEXT NOT NULL UNIQUE,
	base_url TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'disconnected',
	chatwoot_account_id INTEGER NOT NULL,
	chatwoot_inbox_id INTEGER NOT NULL,
	chatwoot_url TEXT NOT NULL,
	chatwoot_user_token TEXT NOT NULL,
	groups_ignore INTEGER NOT NULL DEFAULT 0,
	auto_reject_calls INTEGER NOT NULL DEFAULT 0,
	auto_reply_calls INTEGER NOT NULL DEFAULT 0,
	auto_reply_scripts TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_instances_inbox ON instances(chatwoot_account_id, chatwoot_inbox_id);
`
