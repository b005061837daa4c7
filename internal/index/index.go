package index

import "github.com/starford/dagaz/internal/models"

// EntryIndex defines the interface for derived-index operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type EntryIndex interface {
	ApplyDiff(date models.Date, oldEntry, newEntry *models.Entry, content string) error
	Checksum(date models.Date) (string, error)
	AllChecksums() (map[string]string, error)
	IndexedContent(date models.Date) (string, error)
	ListRows(r models.DateRange) ([]EntryRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	Term(term string) (*TermRecord, error)
	Terms(limit int) ([]TermRecord, error)
	RefsFrom(date models.Date) ([]models.Reference, error)
	RefsTo(date models.Date) ([]models.Reference, error)
	Stats() (*Stats, error)
	Reset() error
	Path() string
	Close() error
}

// Verify *DB satisfies EntryIndex at compile time.
var _ EntryIndex = (*DB)(nil)
