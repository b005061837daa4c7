package api

import (
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/journal"
	"github.com/starford/dagaz/internal/models"
)

// WriteEntryRequest is the request body for writing a day's entry.
// Empty content is valid and removes the day.
type WriteEntryRequest struct {
	Content string `json:"content" example:"# Tasks\ncall the dentist\n\n# Notes\nrainy morning"`
}

// AppendBulletRequest is the request body for appending one bullet to a day.
type AppendBulletRequest struct {
	Type    string `json:"type" example:"task" validate:"required"`
	Content string `json:"content" example:"call the dentist" validate:"required"`
	State   string `json:"state,omitempty" example:"pending"`
}

// MigrateRequest is the request body for moving a task to another day.
type MigrateRequest struct {
	BulletID   string `json:"bullet_id" example:"b1" validate:"required"`
	TargetDate string `json:"target_date" example:"2026-08-21" validate:"required"`
}

// EntryDetail is the full entry response type (aliased from the domain layer).
type EntryDetail = journal.EntryDetail

// EntrySummary is a lightweight item in a list response (aliased from the index layer).
type EntrySummary = index.EntryRow

// EntryListResponse wraps ranged entry listings.
type EntryListResponse struct {
	Entries []EntrySummary `json:"entries" validate:"required"`
	Total   int            `json:"total" example:"22" validate:"required"`
}

// SearchResponse wraps full-text search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// TermsResponse wraps term-frequency listings.
type TermsResponse struct {
	Terms []index.TermRecord `json:"terms" validate:"required"`
}

// RefsResponse carries both directions of one day's cross-references.
type RefsResponse struct {
	Outgoing []models.Reference `json:"outgoing" validate:"required"`
	Incoming []models.Reference `json:"incoming" validate:"required"`
}

// TemplateResponse carries the section scaffold for a day.
type TemplateResponse struct {
	Date     string `json:"date" example:"2026-08-21" validate:"required"`
	Template string `json:"template" validate:"required"`
}

// MigrateResponse reports both touched entries after a migration
// (aliased from the domain layer).
type MigrateResponse = journal.MigrateResult

// StatsResponse is the journal-wide aggregate response (aliased from
// the index layer).
type StatsResponse = index.Stats
