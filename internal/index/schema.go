// Package index maintains the derived SQLite state for the journal:
// aggregate counts, term frequencies, cross-references, and full-text
// search (FTS5 when compiled in). Everything here is derived from the
// canonical store and can be rebuilt from it at any time.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	date              TEXT PRIMARY KEY,
	checksum          TEXT NOT NULL DEFAULT '',
	content           TEXT NOT NULL DEFAULT '',
	word_count        INTEGER NOT NULL DEFAULT 0,
	task_count        INTEGER NOT NULL DEFAULT 0,
	event_count       INTEGER NOT NULL DEFAULT 0,
	note_count        INTEGER NOT NULL DEFAULT 0,
	priority_count    INTEGER NOT NULL DEFAULT 0,
	inspiration_count INTEGER NOT NULL DEFAULT 0,
	insight_count     INTEGER NOT NULL DEFAULT 0,
	misstep_count     INTEGER NOT NULL DEFAULT 0,
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS terms (
	term       TEXT PRIMARY KEY,
	frequency  INTEGER NOT NULL DEFAULT 0,
	first_seen TEXT NOT NULL,
	last_seen  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS refs (
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	type   TEXT NOT NULL DEFAULT 'inline',
	UNIQUE(source, target, type)
);

CREATE INDEX IF NOT EXISTS idx_refs_source ON refs(source);
CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn, path: path}, nil
}

// Path returns the database file path, the index locator handed to hooks.
func (db *DB) Path() string { return db.path }

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
