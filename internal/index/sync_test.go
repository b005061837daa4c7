package index

import (
	"os"
	"testing"

	"github.com/starford/dagaz/internal/models"
)

func TestSync_IndexesNewEntries(t *testing.T) {
	journalDir, store, db := watcherTestEnv(t)
	entryFile(t, journalDir, "2025-08-20", "# Tasks\nship release\n")
	entryFile(t, journalDir, "2025-08-21", "# Notes\nquiet day\n")

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	rows, err := db.ListRows(models.DateRange{From: mustDate(t, "2025-08-20"), To: mustDate(t, "2025-08-21")})
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 indexed entries, got %d", len(rows))
	}
}

func TestSync_SkipsUnchanged(t *testing.T) {
	journalDir, store, db := watcherTestEnv(t)
	entryFile(t, journalDir, "2025-08-21", "# Notes\nstable content\n")

	for i := 0; i < 3; i++ {
		if err := Sync(db, store, quietLogger()); err != nil {
			t.Fatalf("Sync #%d: %v", i+1, err)
		}
	}

	// Repeated syncs of identical content must not inflate frequencies.
	if f := termFreq(t, db, "stable"); f != 1 {
		t.Errorf("stable frequency = %d, want 1 after repeated syncs", f)
	}
}

func TestSync_ReindexesChanged(t *testing.T) {
	journalDir, store, db := watcherTestEnv(t)
	path := entryFile(t, journalDir, "2025-08-21", "# Notes\noriginal wording\n")
	Sync(db, store, quietLogger())

	if err := os.WriteFile(path, []byte("# Notes\nrevised wording\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if f := termFreq(t, db, "original"); f != 0 {
		t.Errorf("original frequency = %d, want pruned after edit", f)
	}
	if f := termFreq(t, db, "revised"); f != 1 {
		t.Errorf("revised frequency = %d, want 1", f)
	}
	if f := termFreq(t, db, "wording"); f != 1 {
		t.Errorf("wording frequency = %d, want unchanged 1", f)
	}
}

func TestSync_RemovesStale(t *testing.T) {
	journalDir, store, db := watcherTestEnv(t)
	path := entryFile(t, journalDir, "2025-08-21", "# Notes\ntransient\n")
	Sync(db, store, quietLogger())

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if cs, _ := db.Checksum(mustDate(t, "2025-08-21")); cs != "" {
		t.Error("removed entry still indexed")
	}
	if f := termFreq(t, db, "transient"); f != 0 {
		t.Errorf("transient frequency = %d, want pruned", f)
	}
}

func TestRebuild_ReplaysCanonicalStore(t *testing.T) {
	journalDir, store, db := watcherTestEnv(t)
	entryFile(t, journalDir, "2025-08-20", "# Notes\nkept entry\n")

	// A date indexed without a backing file simulates drift.
	apply(t, db, "2025-08-21", "# Notes\nghost entry\n")

	if err := Rebuild(db, store, quietLogger()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if cs, _ := db.Checksum(mustDate(t, "2025-08-20")); cs == "" {
		t.Error("on-disk entry missing after rebuild")
	}
	if cs, _ := db.Checksum(mustDate(t, "2025-08-21")); cs != "" {
		t.Error("ghost entry survived rebuild")
	}
	if f := termFreq(t, db, "ghost"); f != 0 {
		t.Errorf("ghost frequency = %d, want 0 after rebuild", f)
	}
}
