// Package storage defines the canonical entry store abstraction.
package storage

import "github.com/starford/dagaz/internal/models"

// EntryInfo identifies one stored entry during reconciliation.
type EntryInfo struct {
	Date     models.Date
	Checksum string
}

// Provider is the canonical store: date-keyed blobs of entry text. The
// store holds canonical content only; everything derived lives in the
// index and is rebuilt from here.
type Provider interface {
	// Read returns the canonical content for date. An absent date
	// returns an error wrapping apperr.ErrNotFound.
	Read(date models.Date) (string, error)
	// Write atomically replaces the content for date. Either the new
	// content is fully visible or the prior content is untouched.
	Write(date models.Date, content string) error
	// Delete removes the entry for date. Deleting an absent date is a
	// no-op.
	Delete(date models.Date) error
	// Dates returns the stored dates within the range, ascending.
	Dates(r models.DateRange) ([]models.Date, error)
	// All returns every stored date with its content checksum, ascending.
	All() ([]EntryInfo, error)
	// Location returns an opaque locator for the date's storage slot,
	// suitable for surfacing to hooks and logs.
	Location(date models.Date) string
}
