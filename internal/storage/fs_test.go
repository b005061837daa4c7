package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

func tempJournal(t *testing.T) *FS {
	t.Helper()
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

// testProviders builds one of each backend so the shared contract tests
// cover both.
func testProviders(t *testing.T) map[string]Provider {
	t.Helper()
	fsP := tempJournal(t)
	dkP, err := NewDiskv(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskv: %v", err)
	}
	return map[string]Provider{"fs": fsP, "diskv": dkP}
}

func TestWriteAndRead(t *testing.T) {
	for name, s := range testProviders(t) {
		t.Run(name, func(t *testing.T) {
			date := models.NewDate(2025, 8, 21)
			content := "# Tasks\nwrite tests\n"
			if err := s.Write(date, content); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := s.Read(date)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if got != content {
				t.Errorf("content = %q, want %q", got, content)
			}
		})
	}
}

func TestRead_AbsentIsNotFound(t *testing.T) {
	for name, s := range testProviders(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Read(models.NewDate(1999, 1, 1))
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestWrite_CreatesDateTree(t *testing.T) {
	for name, s := range testProviders(t) {
		t.Run(name, func(t *testing.T) {
			date := models.NewDate(2025, 8, 21)
			if err := s.Write(date, "x"); err != nil {
				t.Fatalf("Write: %v", err)
			}
			loc := s.Location(date)
			if !filepath.IsAbs(loc) {
				t.Fatalf("Location = %q, want absolute", loc)
			}
			if _, err := os.Stat(loc); err != nil {
				t.Errorf("expected file at %s: %v", loc, err)
			}
			if !strings.HasSuffix(filepath.ToSlash(loc), "2025/08/21.md") {
				t.Errorf("layout = %q, want .../2025/08/21.md", loc)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, s := range testProviders(t) {
		t.Run(name, func(t *testing.T) {
			date := models.NewDate(2025, 8, 21)
			_ = s.Write(date, "bye")
			if err := s.Delete(date); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Read(date); !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("read after delete: %v, want ErrNotFound", err)
			}
			// Deleting again is a no-op.
			if err := s.Delete(date); err != nil {
				t.Errorf("second delete: %v", err)
			}
		})
	}
}

func TestAll_SortedWithChecksums(t *testing.T) {
	for name, s := range testProviders(t) {
		t.Run(name, func(t *testing.T) {
			_ = s.Write(models.NewDate(2025, 8, 21), "later")
			_ = s.Write(models.NewDate(2025, 8, 4), "earlier")
			_ = s.Write(models.NewDate(2024, 12, 31), "earliest")

			all, err := s.All()
			if err != nil {
				t.Fatalf("All: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("len = %d, want 3", len(all))
			}
			if all[0].Date.String() != "2024-12-31" || all[2].Date.String() != "2025-08-21" {
				t.Errorf("order = %v", all)
			}
			for _, info := range all {
				if info.Checksum == "" {
					t.Errorf("missing checksum for %s", info.Date)
				}
			}
		})
	}
}

func TestAll_IgnoresForeignFiles(t *testing.T) {
	s := tempJournal(t)
	_ = s.Write(models.NewDate(2025, 8, 21), "real")

	// Dot-directories and non-entry files are not part of the store.
	if err := os.MkdirAll(filepath.Join(s.root, ".index"), 0o755); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(s.root, ".index", "dagaz.db"), []byte("db"), 0o644)
	_ = os.WriteFile(filepath.Join(s.root, "README.txt"), []byte("hi"), 0o644)
	_ = os.WriteFile(filepath.Join(s.root, "2025", "08", "notes.txt"), []byte("hi"), 0o644)

	all, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len = %d, want only the entry file", len(all))
	}
}

func TestDates_RangeFilter(t *testing.T) {
	for name, s := range testProviders(t) {
		t.Run(name, func(t *testing.T) {
			for _, d := range []models.Date{
				models.NewDate(2025, 8, 1),
				models.NewDate(2025, 8, 15),
				models.NewDate(2025, 9, 1),
			} {
				_ = s.Write(d, "x")
			}
			got, err := s.Dates(models.MonthOf(models.NewDate(2025, 8, 10)))
			if err != nil {
				t.Fatalf("Dates: %v", err)
			}
			if len(got) != 2 || got[0].String() != "2025-08-01" || got[1].String() != "2025-08-15" {
				t.Errorf("dates = %v", got)
			}
		})
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	// The rename lands the full new content; no temp files remain.
	s := tempJournal(t)
	date := models.NewDate(2025, 8, 21)
	_ = s.Write(date, "original content")
	if err := s.Write(date, "updated content"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read(date)
	if got != "updated content" {
		t.Errorf("content = %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Location(date)), ".dagaz-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/dagaz-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "dagaz-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
