//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/dagaz/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			date UNINDEXED,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, date, content string) error {
	_, _ = tx.Exec(`DELETE FROM entries_fts WHERE date = ?`, date)
	_, err := tx.Exec(`INSERT INTO entries_fts (date, content) VALUES (?, ?)`, date, content)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, date string) {
	_, _ = tx.Exec(`DELETE FROM entries_fts WHERE date = ?`, date)
}

func ftsClear(tx *sql.Tx) {
	_, _ = tx.Exec(`DELETE FROM entries_fts`)
}

// Search performs an FTS5 full-text search. Results come back best match
// first; equally ranked hits order newest date first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT date,
		       snippet(entries_fts, 1, '<b>', '</b>', '...', 64)
		FROM entries_fts
		WHERE entries_fts MATCH ?
		ORDER BY rank, date DESC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var dateStr string
		if err := rows.Scan(&dateStr, &r.Snippet); err != nil {
			return nil, err
		}
		if r.Date, err = models.ParseDate(dateStr); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
