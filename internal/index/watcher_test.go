package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/storage"
)

// watcherTestEnv sets up a journal dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	journalDir := t.TempDir()
	store, err := storage.NewFS(journalDir)
	if err != nil {
		t.Fatal(err)
	}
	dbFile, err := os.CreateTemp("", "dagaz-watcher-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	db, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return journalDir, store, db
}

// entryFile creates the date directories and writes an entry file the way
// an external editor would.
func entryFile(t *testing.T, root, dateStr, content string) string {
	t.Helper()
	d := mustDate(t, dateStr)
	path := filepath.Join(root, d.Time().Format("2006"), d.Time().Format("01"), d.Time().Format("02")+".md")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// eventCollector gathers watcher callbacks under a lock.
type eventCollector struct {
	mu     sync.Mutex
	events []string
}

func (c *eventCollector) callback(kind string, date models.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, kind+":"+date.String())
}

func (c *eventCollector) has(want string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e == want {
			return true
		}
	}
	return false
}

func (c *eventCollector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	copy(out, c.events)
	return out
}

func TestWatcher_NewEntryIndexed(t *testing.T) {
	journalDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var col eventCollector
	go Watch(ctx, db, store, journalDir, quietLogger(), col.callback)

	time.Sleep(100 * time.Millisecond)

	entryFile(t, journalDir, "2025-08-21", "# Notes\nwritten from outside\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.Checksum(mustDate(t, "2025-08-21"))
		return cs != ""
	}, "new entry not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return col.has("created:2025-08-21")
	}, "expected created:2025-08-21 callback")
}

func TestWatcher_NewMonthDirWatched(t *testing.T) {
	journalDir, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, journalDir, quietLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	// September dirs do not exist yet; creating the entry creates them.
	entryFile(t, journalDir, "2025-09-01", "# Notes\nfirst of the month\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.Checksum(mustDate(t, "2025-09-01"))
		return cs != ""
	}, "entry in new month dir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	journalDir, store, db := watcherTestEnv(t)

	path := entryFile(t, journalDir, "2025-08-21", "# Tasks\ndoomed\n")
	Sync(db, store, quietLogger())

	if cs, _ := db.Checksum(mustDate(t, "2025-08-21")); cs == "" {
		t.Fatal("precondition: entry should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, journalDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(path)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.Checksum(mustDate(t, "2025-08-21"))
		return cs == ""
	}, "deleted entry still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	journalDir, store, db := watcherTestEnv(t)

	oldPath := entryFile(t, journalDir, "2025-08-21", "# Notes\nmoving day\n")
	Sync(db, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, journalDir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	newPath := filepath.Join(filepath.Dir(oldPath), "22.md")
	_ = os.Rename(oldPath, newPath)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.Checksum(mustDate(t, "2025-08-21"))
		newCS, _ := db.Checksum(mustDate(t, "2025-08-22"))
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old date should be removed and new date indexed")
}

func TestWatcher_ExternalEditUpdates(t *testing.T) {
	journalDir, store, db := watcherTestEnv(t)

	path := entryFile(t, journalDir, "2025-08-21", "# Notes\nbefore\n")
	Sync(db, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var col eventCollector
	go Watch(ctx, db, store, journalDir, quietLogger(), col.callback)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(path, []byte("# Notes\nafter\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return col.has("updated:2025-08-21")
	}, "expected updated:2025-08-21 callback")

	content, _ := db.IndexedContent(mustDate(t, "2025-08-21"))
	if content != "# Notes\nafter\n" {
		t.Errorf("indexed content = %q, want the edited text", content)
	}
}

func TestWatcher_OwnWritesSkipped(t *testing.T) {
	journalDir, store, db := watcherTestEnv(t)

	// Entry already written and indexed through the engine path.
	content := "# Notes\nalready indexed\n"
	path := entryFile(t, journalDir, "2025-08-21", content)
	Sync(db, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var col eventCollector
	go Watch(ctx, db, store, journalDir, quietLogger(), col.callback)
	time.Sleep(100 * time.Millisecond)

	// Re-touch with identical content, then write a marker entry. Events
	// arrive in order, so once the marker shows up the touch has been
	// processed too.
	_ = os.WriteFile(path, []byte(content), 0o644)
	entryFile(t, journalDir, "2025-08-22", "# Notes\nmarker\n")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return col.has("created:2025-08-22")
	}, "marker entry not indexed")

	for _, e := range col.snapshot() {
		if e == "updated:2025-08-21" || e == "created:2025-08-21" {
			t.Errorf("unchanged entry produced callback %q", e)
		}
	}
}
