package index

import (
	"log/slog"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/parser"
	"github.com/starford/dagaz/internal/storage"
)

// Sync walks the canonical store and brings the index up to date:
//   - new/changed entries are parsed and re-applied as diffs
//   - dates removed from the store are removed from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	infos, err := store.All()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	stored := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		key := info.Date.String()
		stored[key] = struct{}{}

		if checksums[key] == info.Checksum {
			continue
		}

		raw, err := store.Read(info.Date)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("date", key), slog.String("error", err.Error()))
			continue
		}
		if err := syncDate(db, info.Date, raw); err != nil {
			logger.Warn("sync: index failed", slog.String("date", key), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("date", key))
		}
	}

	// Remove stale dates.
	for key := range checksums {
		if _, ok := stored[key]; ok {
			continue
		}
		date, err := models.ParseDate(key)
		if err != nil {
			continue
		}
		if err := syncDate(db, date, ""); err != nil {
			logger.Warn("sync: delete failed", slog.String("date", key), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("date", key))
		}
	}

	return nil
}

// Rebuild discards the derived tables and replays the whole canonical
// store, oldest first.
func Rebuild(db *DB, store storage.Provider, logger *slog.Logger) error {
	if err := db.Reset(); err != nil {
		return err
	}
	logger.Info("index reset, replaying canonical store")
	return Sync(db, store, logger)
}

// syncDate diffs one date's canonical raw text against what the index
// last saw and applies the difference. Empty raw removes the date.
func syncDate(db *DB, date models.Date, raw string) error {
	prev, err := db.IndexedContent(date)
	if err != nil {
		return err
	}
	var oldEntry *models.Entry
	if prev != "" {
		oldEntry = models.NewEntry(date, parser.Parse(prev).Bullets)
	}
	if raw == "" {
		return db.ApplyDiff(date, oldEntry, nil, "")
	}
	newEntry := models.NewEntry(date, parser.Parse(raw).Bullets)
	return db.ApplyDiff(date, oldEntry, newEntry, raw)
}
