package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dagaz/internal/checksum"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, date models.Date)

// Watch starts an fsnotify watcher on the journal root and processes
// entry file events until ctx is cancelled. It calls cb (if non-nil)
// after each successful index mutation.
//
// Entries the engine itself wrote are recognized by checksum and
// skipped, so only external edits produce callbacks. Dot-directories
// under the root (the index, logs, temp staging) are never watched.
// New date directories created at runtime are added to the watch list.
// Rename events trigger a debounced reconciliation pass that removes
// stale index entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, journalRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, journalRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", journalRoot))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileAfterRename(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			rel, relErr := filepath.Rel(journalRoot, absPath)
			if relErr != nil || underDotDir(rel) {
				continue
			}

			// --- Handle new directories: add to watcher ---
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Index any entries already in the new directory.
					indexNewDir(db, store, journalRoot, absPath, logger, cb)
					continue
				}
			}

			// Only entry files (YYYY/MM/DD.md) matter from here on.
			date, isEntry := storage.ParseEntryPath(rel)
			if !isEntry {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				raw, readErr := store.Read(date)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("date", date.String()), slog.String("error", readErr.Error()))
					continue
				}
				indexed, _ := db.Checksum(date)
				if indexed == checksum.SumString(raw) {
					// Our own write, already indexed.
					continue
				}
				if idxErr := syncDate(db, date, raw); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("date", date.String()), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if indexed == "" {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("date", date.String()), slog.String("op", kind))
				if cb != nil {
					cb(kind, date)
				}

			case ev.Op&fsnotify.Remove != 0:
				indexed, _ := db.Checksum(date)
				if indexed == "" {
					// Nothing indexed; our own delete already handled it.
					continue
				}
				if delErr := syncDate(db, date, ""); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("date", date.String()), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("date", date.String()))
				if cb != nil {
					cb("deleted", date)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path will arrive as a separate Create event (if it
				// stays within a watched dir). We drop the old entry
				// immediately and schedule a short reconciliation pass
				// to catch any stragglers.
				if indexed, _ := db.Checksum(date); indexed != "" {
					if delErr := syncDate(db, date, ""); delErr != nil {
						logger.Warn("watcher: rename delete failed", slog.String("date", date.String()), slog.String("error", delErr.Error()))
					} else {
						logger.Debug("watcher: rename old deleted", slog.String("date", date.String()))
						if cb != nil {
							cb("deleted", date)
						}
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcileAfterRename does a lightweight sync using batch lookups:
// finds indexed dates without a corresponding file on disk and removes
// them, and finds on-disk entries that are not indexed and indexes them.
func reconcileAfterRename(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	infos, err := store.All()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(infos))
	for _, info := range infos {
		disk[info.Date.String()] = info.Checksum
	}

	for key := range checksums {
		if _, ok := disk[key]; ok {
			continue
		}
		date, parseErr := models.ParseDate(key)
		if parseErr != nil {
			continue
		}
		if delErr := syncDate(db, date, ""); delErr == nil {
			logger.Debug("reconcile: removed stale", slog.String("date", key))
			if cb != nil {
				cb("deleted", date)
			}
		}
	}

	for key, cs := range disk {
		if checksums[key] == cs {
			continue
		}
		date, parseErr := models.ParseDate(key)
		if parseErr != nil {
			continue
		}
		raw, readErr := store.Read(date)
		if readErr != nil {
			continue
		}
		if idxErr := syncDate(db, date, raw); idxErr == nil {
			logger.Debug("reconcile: indexed new", slog.String("date", key))
			if cb != nil {
				cb("created", date)
			}
		}
	}
}

// indexNewDir indexes any entry files found in a newly created directory.
func indexNewDir(db *DB, store storage.Provider, journalRoot, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(journalRoot, path)
		if relErr != nil {
			return nil
		}
		date, isEntry := storage.ParseEntryPath(rel)
		if !isEntry {
			return nil
		}
		raw, readErr := store.Read(date)
		if readErr != nil {
			return nil
		}
		if indexed, _ := db.Checksum(date); indexed == checksum.SumString(raw) {
			return nil
		}
		if idxErr := syncDate(db, date, raw); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("date", date.String()))
			if cb != nil {
				cb("created", date)
			}
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to
// the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// underDotDir reports whether a journal-relative path sits inside a
// hidden directory (the index, logs, or temp staging).
func underDotDir(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
