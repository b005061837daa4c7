package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/models"
)

// entryFileRe matches the relative path of a stored entry: YYYY/MM/DD.md.
var entryFileRe = regexp.MustCompile(`^(\d{4})/(\d{2})/(\d{2})\.md$`)

// FS implements Provider as a sparse file tree: one file per day at
// <root>/YYYY/MM/DD.md. Dot-directories under the root (index, logs) are
// not part of the store and are ignored.
type FS struct {
	root string // absolute path to the journal directory
}

// NewFS creates an FS provider rooted at the given directory. The
// directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// entryPath returns the absolute file path for a date.
func (f *FS) entryPath(date models.Date) string {
	return filepath.Join(f.root, date.Time().Format("2006"), date.Time().Format("01"), date.Time().Format("02")+".md")
}

// Location returns the absolute file path of the date's entry.
func (f *FS) Location(date models.Date) string {
	return f.entryPath(date)
}

// Read returns the canonical content for date.
func (f *FS) Read(date models.Date) (string, error) {
	data, err := os.ReadFile(f.entryPath(date))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("storage: read %s: %w", date, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("storage: read %s: %w", date, err)
	}
	return string(data), nil
}

// Write atomically replaces the content for date: tmp file in the target
// directory, fsync, rename.
func (f *FS) Write(date models.Date, content string) error {
	abs := f.entryPath(date)
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dagaz-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes the entry for date. Absent entries are a no-op; the
// year/month directories stay.
func (f *FS) Delete(date models.Date) error {
	err := os.Remove(f.entryPath(date))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", date, err)
	}
	return nil
}

// All walks the tree and returns every stored entry with its checksum,
// ascending by date.
func (f *FS) All() ([]EntryInfo, error) {
	var out []EntryInfo
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != f.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		date, ok := ParseEntryPath(rel)
		if !ok {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, EntryInfo{Date: date, Checksum: checksum.Sum(data)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Dates returns the stored dates within the range, ascending.
func (f *FS) Dates(r models.DateRange) ([]models.Date, error) {
	all, err := f.All()
	if err != nil {
		return nil, err
	}
	var out []models.Date
	for _, info := range all {
		if r.Contains(info.Date) {
			out = append(out, info.Date)
		}
	}
	return out, nil
}

// ParseEntryPath parses a YYYY/MM/DD.md path, relative to the journal
// root, into its date. The watcher uses it to map filesystem events back
// to entries.
func ParseEntryPath(rel string) (models.Date, bool) {
	m := entryFileRe.FindStringSubmatch(filepath.ToSlash(rel))
	if m == nil {
		return models.Date{}, false
	}
	d, err := models.ParseDate(m[1] + "-" + m[2] + "-" + m[3])
	if err != nil {
		return models.Date{}, false
	}
	return d, true
}
