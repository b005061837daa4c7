//go:build sqlite_fts5

package index

import (
	"strings"
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries_fts`).Scan(&count); err != nil {
		t.Fatalf("entries_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	apply(t, db, "2025-08-21", "# Notes\nDagaz provides powerful full-text search over entries.\n")

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Date.String() != "2025-08-21" {
		t.Errorf("date = %s", results[0].Date)
	}
	if !strings.Contains(results[0].Snippet, "<b>powerful</b>") {
		t.Errorf("snippet = %q, want match highlighted", results[0].Snippet)
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	apply(t, db, "2025-08-21", "# Notes\nvanishing content\n")
	apply(t, db, "2025-08-21", "")

	results, _ := db.Search("vanishing", 10)
	if len(results) != 0 {
		t.Error("deleted entry still in FTS index")
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	apply(t, db, "2025-08-21", "# Notes\noriginal text\n")
	apply(t, db, "2025-08-21", "# Notes\nreplacement text\n")

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_RankOrdersResults(t *testing.T) {
	db := testDB(t)
	apply(t, db, "2025-08-20", "# Notes\nlantern mentioned once among many other words here\n")
	apply(t, db, "2025-08-21", "# Notes\nlantern lantern lantern\n")

	results, err := db.Search("lantern", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Date.String() != "2025-08-21" {
		t.Errorf("best match = %s, want the denser entry first", results[0].Date)
	}
}
