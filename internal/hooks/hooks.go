// Package hooks runs registered observers after each committed journal
// write. Hooks never participate in the write itself: by the time one
// runs, the canonical store and the index are already consistent, and a
// failing hook cannot undo that.
package hooks

import (
	"log/slog"
	"sync"

	"github.com/starford/dagaz/internal/models"
)

// WriteContext describes one committed write as seen by hooks.
type WriteContext struct {
	// Date of the affected entry.
	Date models.Date
	// WriteID uniquely identifies this commit.
	WriteID string
	// Kind is "created", "updated", or "deleted".
	Kind string
	// EntryLocation locates the canonical entry (file path for the fs
	// backend, key path for diskv).
	EntryLocation string
	// IndexLocation is the index database path.
	IndexLocation string
	// Content is the canonical text as committed; empty for deletes.
	Content string
}

// WriteHook observes committed writes.
type WriteHook struct {
	// Name identifies the hook in configuration and logs.
	Name string
	// EnabledByDefault controls whether the hook runs when the
	// configuration does not mention it.
	EnabledByDefault bool
	// OnEntryWritten is called once per committed write. entry is the
	// parsed committed entry, nil when the write removed the day.
	OnEntryWritten func(wc WriteContext, entry *models.Entry) error
}

// Dispatcher runs hooks in registration order after each commit. One
// hook failing is logged and skipped; it affects neither the committed
// write nor the hooks after it.
type Dispatcher struct {
	logger *slog.Logger

	mu    sync.RWMutex
	hooks []WriteHook
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Register appends a hook. Hooks run in the order they were registered.
func (d *Dispatcher) Register(h WriteHook) {
	if h.OnEntryWritten == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, h)
	d.logger.Debug("hook registered", slog.String("hook", h.Name))
}

// Names returns the registered hook names in run order.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.hooks))
	for i, h := range d.hooks {
		out[i] = h.Name
	}
	return out
}

// Notify runs every registered hook, in order, for one committed write.
func (d *Dispatcher) Notify(wc WriteContext, entry *models.Entry) {
	d.mu.RLock()
	hooks := d.hooks
	d.mu.RUnlock()

	for _, h := range hooks {
		if err := h.OnEntryWritten(wc, entry); err != nil {
			d.logger.Error("hook failed",
				slog.String("hook", h.Name),
				slog.String("write_id", wc.WriteID),
				slog.String("date", wc.Date.String()),
				slog.String("error", err.Error()))
		}
	}
}
