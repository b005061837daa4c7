package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/models"
)

// Diskv implements Provider on a diskv key-value store. Keys are the
// YYYY-MM-DD date strings; the path transform lays files out as
// <root>/YYYY/MM/DD.md, the same tree the FS provider uses, so the two
// backends are interchangeable on disk.
type Diskv struct {
	d    *diskv.Diskv
	root string
}

// NewDiskv creates a diskv-backed provider rooted at the given directory.
func NewDiskv(root string) (*Diskv, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	d := diskv.New(diskv.Options{
		BasePath:          abs,
		AdvancedTransform: dateToPathTransform,
		InverseTransform:  pathToDateTransform,
		CacheSizeMax:      1024 * 1024, // 1MB
		TempDir:           filepath.Join(abs, ".tmp"),
	})
	return &Diskv{d: d, root: abs}, nil
}

// dateToPathTransform maps "2025-08-21" to 2025/08/21.md.
func dateToPathTransform(key string) *diskv.PathKey {
	parts := strings.Split(key, "-")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1] + ".md",
	}
}

// pathToDateTransform restores the date key from a path.
func pathToDateTransform(pk *diskv.PathKey) string {
	name := strings.TrimSuffix(pk.FileName, ".md")
	return strings.Join(pk.Path, "-") + "-" + name
}

// Location returns the file path diskv stores the date under.
func (s *Diskv) Location(date models.Date) string {
	pk := dateToPathTransform(date.String())
	parts := append([]string{s.root}, pk.Path...)
	return filepath.Join(append(parts, pk.FileName)...)
}

// Read returns the canonical content for date.
func (s *Diskv) Read(date models.Date) (string, error) {
	data, err := s.d.Read(date.String())
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("storage: read %s: %w", date, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("storage: read %s: %w", date, err)
	}
	return string(data), nil
}

// Write replaces the content for date. Writes stage through the temp
// directory and land by rename.
func (s *Diskv) Write(date models.Date, content string) error {
	if err := s.d.Write(date.String(), []byte(content)); err != nil {
		return fmt.Errorf("storage: write %s: %w", date, err)
	}
	return nil
}

// Delete removes the entry for date. Absent entries are a no-op.
func (s *Diskv) Delete(date models.Date) error {
	err := s.d.Erase(date.String())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", date, err)
	}
	return nil
}

// All returns every stored entry with its checksum, ascending by date.
func (s *Diskv) All() ([]EntryInfo, error) {
	var out []EntryInfo
	for key := range s.d.Keys(nil) {
		date, err := models.ParseDate(key)
		if err != nil {
			continue
		}
		data, err := s.d.Read(key)
		if err != nil {
			return nil, fmt.Errorf("storage: read %s: %w", key, err)
		}
		out = append(out, EntryInfo{Date: date, Checksum: checksum.Sum(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Dates returns the stored dates within the range, ascending.
func (s *Diskv) Dates(r models.DateRange) ([]models.Date, error) {
	all, err := s.All()
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
