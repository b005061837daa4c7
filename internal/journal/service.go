// Package journal coordinates the canonical store, the derived index,
// and the post-commit hooks behind one write path. Every mutation goes
// through here; the HTTP API and the MCP server are both thin layers
// over this service.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/hooks"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
	"github.com/starford/dagaz/internal/storage"
)

// EntryDetail is the full representation of one day's entry.
type EntryDetail struct {
	Date     models.Date        `json:"date"`
	Content  string             `json:"content"`
	Checksum string             `json:"checksum"`
	Bullets  []models.Bullet    `json:"bullets"`
	Counts   models.Counts      `json:"counts"`
	Refs     []models.Reference `json:"refs"`
	Backrefs []models.Reference `json:"backrefs"`
	Warnings []string           `json:"warnings,omitempty"`
}

// Service coordinates storage, index, and hook operations.
type Service struct {
	store      storage.Provider
	db         *index.DB
	dispatcher *hooks.Dispatcher
	logger     *slog.Logger

	// mu serializes mutations. Reads go straight to the store and index.
	mu sync.Mutex
}

// NewService creates a new journal service.
func NewService(store storage.Provider, db *index.DB, dispatcher *hooks.Dispatcher, logger *slog.Logger) *Service {
	return &Service{store: store, db: db, dispatcher: dispatcher, logger: logger}
}

// Read returns the entry for a date. Absent dates return an error
// wrapping apperr.ErrNotFound.
func (s *Service) Read(_ context.Context, date models.Date) (*EntryDetail, error) {
	raw, err := s.store.Read(date)
	if err != nil {
		return nil, err
	}
	entry := models.NewEntry(date, parser.Parse(raw).Bullets)
	return s.buildDetail(date, raw, entry, nil)
}

// Summaries returns the indexed per-day aggregates within the range,
// ascending by date. Days without an entry do not appear.
func (s *Service) Summaries(_ context.Context, r models.DateRange) ([]index.EntryRow, error) {
	return s.db.ListRows(r)
}

// Write replaces the entry for a date with the normalized form of raw.
// Content that parses to no bullets removes the day. When ifMatch is
// non-empty it must equal the current content checksum, otherwise the
// write fails with apperr.ErrConflict.
func (s *Service) Write(_ context.Context, date models.Date, raw, ifMatch string) (*EntryDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(date, raw, ifMatch)
}

func (s *Service) writeLocked(date models.Date, raw, ifMatch string) (*EntryDetail, error) {
	res := parser.Parse(raw)
	entry := models.NewEntry(date, res.Bullets)

	if ifMatch != "" {
		prior, err := s.store.Read(date)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if checksum.SumString(prior) != ifMatch {
			return nil, fmt.Errorf("journal: write %s: %w", date, apperr.ErrConflict)
		}
	}

	if entry.IsEmpty() {
		// Writing emptiness removes the day.
		if err := s.deleteLocked(date); err != nil {
			return nil, err
		}
		return s.buildDetail(date, "", entry, res.Warnings)
	}

	canonical := parser.Serialize(entry)
	kind, err := s.commit(date, canonical, entry)
	if err != nil {
		return nil, err
	}
	s.notify(kind, date, canonical, entry)
	return s.buildDetail(date, canonical, entry, res.Warnings)
}

// Delete removes the entry for a date. Deleting an absent date is a
// no-op.
func (s *Service) Delete(_ context.Context, date models.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(date)
}

func (s *Service) deleteLocked(date models.Date) error {
	if _, err := s.store.Read(date); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	if _, err := s.commit(date, "", nil); err != nil {
		return err
	}
	s.notify("deleted", date, "", nil)
	return nil
}

// AppendBullet adds one bullet to the end of the date's entry, creating
// the entry if the day was empty.
func (s *Service) AppendBullet(_ context.Context, date models.Date, b models.Bullet) (*EntryDetail, error) {
	if !b.Type.Valid() {
		return nil, fmt.Errorf("journal: append to %s: unknown bullet type %q", date, b.Type)
	}
	if b.Type == models.Task && b.TaskState == "" {
		b.TaskState = models.Pending
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var bullets []models.Bullet
	raw, err := s.store.Read(date)
	switch {
	case err == nil:
		bullets = parser.Parse(raw).Bullets
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return nil, err
	}
	bullets = append(bullets, b)
	return s.writeLocked(date, parser.Serialize(models.NewEntry(date, bullets)), "")
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Term returns the frequency record for one term.
func (s *Service) Term(_ context.Context, term string) (*index.TermRecord, error) {
	return s.db.Term(term)
}

// Terms returns the most frequent terms.
func (s *Service) Terms(_ context.Context, limit int) ([]index.TermRecord, error) {
	return s.db.Terms(limit)
}

// References returns the date's outgoing and incoming edges.
func (s *Service) References(_ context.Context, date models.Date) (out, in []models.Reference, err error) {
	if out, err = s.db.RefsFrom(date); err != nil {
		return nil, nil, err
	}
	if in, err = s.db.RefsTo(date); err != nil {
		return nil, nil, err
	}
	return nonNilSlice(out), nonNilSlice(in), nil
}

// Stats returns journal-wide totals.
func (s *Service) Stats(_ context.Context) (*index.Stats, error) {
	return s.db.Stats()
}

// Template renders the full section scaffold for a date, populated with
// the existing entry when one exists.
func (s *Service) Template(_ context.Context, date models.Date) (string, error) {
	raw, err := s.store.Read(date)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return parser.SerializeTemplate(nil), nil
		}
		return "", err
	}
	return parser.SerializeTemplate(models.NewEntry(date, parser.Parse(raw).Bullets)), nil
}

// commit makes one date's canonical content and index row change
// together. The store is written first; if the index diff then fails,
// the prior canonical content is restored so neither side moves. Empty
// canonical content removes the day. Callers hold s.mu.
func (s *Service) commit(date models.Date, canonical string, entry *models.Entry) (kind string, err error) {
	prior, readErr := s.store.Read(date)
	hadPrior := readErr == nil
	if readErr != nil && !errors.Is(readErr, apperr.ErrNotFound) {
		return "", readErr
	}

	if canonical == "" {
		if err := s.store.Delete(date); err != nil {
			return "", fmt.Errorf("journal: store delete for %s: %w", date, err)
		}
	} else {
		if err := s.store.Write(date, canonical); err != nil {
			return "", fmt.Errorf("journal: store write for %s: %w", date, err)
		}
	}

	var oldEntry *models.Entry
	if indexed, idxErr := s.db.IndexedContent(date); idxErr == nil && indexed != "" {
		oldEntry = models.NewEntry(date, parser.Parse(indexed).Bullets)
	}

	if err := s.db.ApplyDiff(date, oldEntry, entry, canonical); err != nil {
		s.restore(date, prior, hadPrior)
		return "", fmt.Errorf("journal: index update for %s: %w", date, err)
	}

	switch {
	case canonical == "":
		return "deleted", nil
	case hadPrior:
		return "updated", nil
	default:
		return "created", nil
	}
}

// restore puts the canonical store back to its pre-commit state after an
// index failure. A failure here leaves the store ahead of the index; the
// next sync pass reconciles it, so we only log.
func (s *Service) restore(date models.Date, prior string, hadPrior bool) {
	var err error
	if hadPrior {
		err = s.store.Write(date, prior)
	} else {
		err = s.store.Delete(date)
	}
	if err != nil {
		s.logger.Error("rollback of canonical write failed",
			slog.String("date", date.String()),
			slog.String("error", err.Error()))
	}
}

// notify runs the post-commit hooks for one committed write. entry is
// nil when the write removed the day.
func (s *Service) notify(kind string, date models.Date, content string, entry *models.Entry) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Notify(hooks.WriteContext{
		Date:          date,
		WriteID:       uuid.New().String(),
		Kind:          kind,
		EntryLocation: s.store.Location(date),
		IndexLocation: s.db.Path(),
		Content:       content,
	}, entry)
}

// buildDetail assembles the full entry representation without re-reading
// the store.
func (s *Service) buildDetail(date models.Date, content string, entry *models.Entry, warnings []parser.Warning) (*EntryDetail, error) {
	refs := make([]models.Reference, 0, len(entry.Bullets))
	for _, r := range parser.ExtractRefs(entry.Bullets) {
		refs = append(refs, models.Reference{Source: date, Target: r.Target, Type: r.Type})
	}
	backrefs, err := s.db.RefsTo(date)
	if err != nil {
		return nil, err
	}
	var warn []string
	for _, w := range warnings {
		warn = append(warn, w.String())
	}
	return &EntryDetail{
		Date:     date,
		Content:  content,
		Checksum: checksum.SumString(content),
		Bullets:  nonNilSlice(entry.Bullets),
		Counts:   entry.Counts,
		Refs:     refs,
		Backrefs: nonNilSlice(backrefs),
		Warnings: warn,
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
