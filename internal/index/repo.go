package index

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
)

// EntryRow is the indexed summary of one entry.
type EntryRow struct {
	Date      models.Date   `json:"date"`
	Checksum  string        `json:"checksum"`
	Counts    models.Counts `json:"counts"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SearchResult is one full-text search hit.
type SearchResult struct {
	Date    models.Date `json:"date"`
	Snippet string      `json:"snippet"`
}

// TermRecord is one row of the term-frequency table. Frequency counts
// entries containing the term, not occurrences.
type TermRecord struct {
	Term      string      `json:"term"`
	Frequency int         `json:"frequency"`
	FirstSeen models.Date `json:"first_seen"`
	LastSeen  models.Date `json:"last_seen"`
}

// Stats are journal-wide totals summed over the indexed entries.
type Stats struct {
	Entries int           `json:"entries"`
	Counts  models.Counts `json:"counts"`
}

// termsOf returns the distinct lowercase terms of an entry's bullet
// content. Tokens are split on whitespace and trimmed of edge
// punctuation; empty leftovers are dropped.
func termsOf(e *models.Entry) map[string]struct{} {
	out := make(map[string]struct{})
	if e == nil {
		return out
	}
	for _, b := range e.Bullets {
		for _, tok := range strings.Fields(strings.ToLower(b.Content)) {
			tok = strings.TrimFunc(tok, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
			if tok != "" {
				out[tok] = struct{}{}
			}
		}
	}
	return out
}

// ApplyDiff brings every derived table in line with newEntry within a
// single transaction. oldEntry is the entry as previously indexed (nil
// when the date was absent); newEntry nil or empty removes the date.
// Aggregate counts are recomputed wholesale; term frequency moves by the
// set difference of distinct terms so that re-applying identical content
// is an empty diff; cross-reference edges for the date are replaced
// wholesale; the search index gets the content verbatim.
func (db *DB) ApplyDiff(date models.Date, oldEntry, newEntry *models.Entry, content string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if newEntry.IsEmpty() {
		ftsDelete(tx, date.String())
		if _, err := tx.Exec(`DELETE FROM refs WHERE source = ?`, date.String()); err != nil {
			return fmt.Errorf("index: delete refs: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM entries WHERE date = ?`, date.String()); err != nil {
			return fmt.Errorf("index: delete entry: %w", err)
		}
		if err := applyTermDiff(tx, date, termsOf(oldEntry), nil); err != nil {
			return err
		}
		return tx.Commit()
	}

	c := newEntry.Counts
	_, err = tx.Exec(`
		INSERT INTO entries (date, checksum, content, word_count,
			task_count, event_count, note_count, priority_count,
			inspiration_count, insight_count, misstep_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			checksum          = excluded.checksum,
			content           = excluded.content,
			word_count        = excluded.word_count,
			task_count        = excluded.task_count,
			event_count       = excluded.event_count,
			note_count        = excluded.note_count,
			priority_count    = excluded.priority_count,
			inspiration_count = excluded.inspiration_count,
			insight_count     = excluded.insight_count,
			misstep_count     = excluded.misstep_count,
			updated_at        = excluded.updated_at
	`, date.String(), checksum.SumString(content), content, c.Words,
		c.Tasks, c.Events, c.Notes, c.Priorities,
		c.Inspirations, c.Insights, c.Missteps, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert entry: %w", err)
	}

	if err := ftsUpsert(tx, date.String(), content); err != nil {
		return err
	}

	// Replace the date's outgoing edges wholesale.
	if _, err := tx.Exec(`DELETE FROM refs WHERE source = ?`, date.String()); err != nil {
		return fmt.Errorf("index: delete refs: %w", err)
	}
	refs := parser.ExtractRefs(newEntry.Bullets)
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (source, target, type) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, err := stmt.Exec(date.String(), r.Target.String(), r.Type); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	if err := applyTermDiff(tx, date, termsOf(oldEntry), termsOf(newEntry)); err != nil {
		return err
	}
	return tx.Commit()
}

// applyTermDiff adjusts the frequency table by the set difference between
// the previously indexed terms and the incoming ones. Terms decremented
// to zero are pruned.
func applyTermDiff(tx *sql.Tx, date models.Date, before, after map[string]struct{}) error {
	var added, removed []string
	for t := range after {
		if _, ok := before[t]; !ok {
			added = append(added, t)
		}
	}
	for t := range before {
		if _, ok := after[t]; !ok {
			removed = append(removed, t)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	if len(added) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO terms (term, frequency, first_seen, last_seen)
			VALUES (?, 1, ?, ?)
			ON CONFLICT(term) DO UPDATE SET
				frequency  = frequency + 1,
				first_seen = MIN(first_seen, excluded.first_seen),
				last_seen  = MAX(last_seen, excluded.last_seen)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare term insert: %w", err)
		}
		defer stmt.Close()
		for _, t := range added {
			if _, err := stmt.Exec(t, date.String(), date.String()); err != nil {
				return fmt.Errorf("index: add term: %w", err)
			}
		}
	}

	if len(removed) > 0 {
		dec, err := tx.Prepare(`UPDATE terms SET frequency = MAX(frequency - 1, 0) WHERE term = ?`)
		if err != nil {
			return fmt.Errorf("index: prepare term decrement: %w", err)
		}
		defer dec.Close()
		for _, t := range removed {
			if _, err := dec.Exec(t); err != nil {
				return fmt.Errorf("index: decrement term: %w", err)
			}
		}
		if _, err := tx.Exec(`DELETE FROM terms WHERE frequency <= 0`); err != nil {
			return fmt.Errorf("index: prune terms: %w", err)
		}
	}
	return nil
}

// Checksum returns the indexed checksum for a date, or empty string if
// the date is not indexed.
func (db *DB) Checksum(date models.Date) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM entries WHERE date = ?`, date.String()).Scan(&cs)
	if err != nil {
		return "", nil // not indexed is fine
	}
	return cs, nil
}

// AllChecksums returns every indexed date's checksum, keyed by date string.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT date, checksum FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var d, cs string
		if err := rows.Scan(&d, &cs); err != nil {
			return nil, err
		}
		out[d] = cs
	}
	return out, rows.Err()
}

// IndexedContent returns the content as last indexed for a date, or empty
// string if the date is not indexed. Reconciliation uses it to recover
// the previously-indexed entry for diffing.
func (db *DB) IndexedContent(date models.Date) (string, error) {
	var content string
	err := db.conn.QueryRow(`SELECT content FROM entries WHERE date = ?`, date.String()).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: indexed content: %w", err)
	}
	return content, nil
}

// ListRows returns the indexed summaries within the range, ascending.
func (db *DB) ListRows(r models.DateRange) ([]EntryRow, error) {
	rows, err := db.conn.Query(`
		SELECT date, checksum, word_count, task_count, event_count,
		       note_count, priority_count, inspiration_count,
		       insight_count, misstep_count, updated_at
		FROM entries
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`, r.From.String(), r.To.String())
	if err != nil {
		return nil, fmt.Errorf("index: list rows: %w", err)
	}
	defer rows.Close()

	var out []EntryRow
	for rows.Next() {
		var row EntryRow
		var dateStr string
		if err := rows.Scan(&dateStr, &row.Checksum, &row.Counts.Words,
			&row.Counts.Tasks, &row.Counts.Events, &row.Counts.Notes,
			&row.Counts.Priorities, &row.Counts.Inspirations,
			&row.Counts.Insights, &row.Counts.Missteps, &row.UpdatedAt); err != nil {
			return nil, err
		}
		d, err := models.ParseDate(dateStr)
		if err != nil {
			return nil, err
		}
		row.Date = d
		out = append(out, row)
	}
	return out, rows.Err()
}

// Term returns the frequency record for one term. Lookup is
// case-insensitive; an unknown term returns apperr.ErrNotFound.
func (db *DB) Term(term string) (*TermRecord, error) {
	rec := TermRecord{}
	var first, last string
	err := db.conn.QueryRow(`
		SELECT term, frequency, first_seen, last_seen FROM terms WHERE term = ?
	`, strings.ToLower(strings.TrimSpace(term))).Scan(&rec.Term, &rec.Frequency, &first, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: term %q: %w", term, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: term %q: %w", term, err)
	}
	if rec.FirstSeen, err = models.ParseDate(first); err != nil {
		return nil, err
	}
	if rec.LastSeen, err = models.ParseDate(last); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Terms returns the most frequent terms, ties broken alphabetically.
func (db *DB) Terms(limit int) ([]TermRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(`
		SELECT term, frequency, first_seen, last_seen
		FROM terms
		ORDER BY frequency DESC, term
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("index: terms: %w", err)
	}
	defer rows.Close()

	var out []TermRecord
	for rows.Next() {
		var rec TermRecord
		var first, last string
		if err := rows.Scan(&rec.Term, &rec.Frequency, &first, &last); err != nil {
			return nil, err
		}
		if rec.FirstSeen, err = models.ParseDate(first); err != nil {
			return nil, err
		}
		if rec.LastSeen, err = models.ParseDate(last); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RefsFrom returns the date's outgoing edges, ordered by target then type.
func (db *DB) RefsFrom(date models.Date) ([]models.Reference, error) {
	return db.queryRefs(`SELECT source, target, type FROM refs WHERE source = ? ORDER BY target, type`, date)
}

// RefsTo returns the date's incoming edges, ordered by source then type.
func (db *DB) RefsTo(date models.Date) ([]models.Reference, error) {
	return db.queryRefs(`SELECT source, target, type FROM refs WHERE target = ? ORDER BY source, type`, date)
}

func (db *DB) queryRefs(query string, date models.Date) ([]models.Reference, error) {
	rows, err := db.conn.Query(query, date.String())
	if err != nil {
		return nil, fmt.Errorf("index: refs: %w", err)
	}
	defer rows.Close()

	var out []models.Reference
	for rows.Next() {
		var src, tgt, typ string
		if err := rows.Scan(&src, &tgt, &typ); err != nil {
			return nil, err
		}
		ref := models.Reference{Type: typ}
		if ref.Source, err = models.ParseDate(src); err != nil {
			return nil, err
		}
		if ref.Target, err = models.ParseDate(tgt); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// Stats sums the indexed entries into journal-wide totals.
func (db *DB) Stats() (*Stats, error) {
	var s Stats
	err := db.conn.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(word_count), 0),
		       COALESCE(SUM(task_count), 0),
		       COALESCE(SUM(event_count), 0),
		       COALESCE(SUM(note_count), 0),
		       COALESCE(SUM(priority_count), 0),
		       COALESCE(SUM(inspiration_count), 0),
		       COALESCE(SUM(insight_count), 0),
		       COALESCE(SUM(misstep_count), 0)
		FROM entries
	`).Scan(&s.Entries, &s.Counts.Words, &s.Counts.Tasks, &s.Counts.Events,
		&s.Counts.Notes, &s.Counts.Priorities, &s.Counts.Inspirations,
		&s.Counts.Insights, &s.Counts.Missteps)
	if err != nil {
		return nil, fmt.Errorf("index: stats: %w", err)
	}
	return &s, nil
}

// Reset clears every derived table. Rebuild replays the canonical store
// afterwards.
func (db *DB) Reset() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{
		`DELETE FROM entries`,
		`DELETE FROM terms`,
		`DELETE FROM refs`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("index: reset: %w", err)
		}
	}
	ftsClear(tx)
	return tx.Commit()
}
