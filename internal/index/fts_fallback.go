//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/dagaz/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; full-text search uses LIKE fallback on entries.content.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _ string) error {
	// Content is already stored in the entries table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

func ftsClear(_ *sql.Tx) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
// Hits order newest date first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT date, substr(content, 1, 200)
		FROM entries
		WHERE content LIKE ?
		ORDER BY date DESC
		LIMIT ?
	`, like, limit)
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
