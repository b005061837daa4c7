package hooks

import (
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/sse"
)

// NewBroadcast returns a hook that forwards committed writes to the SSE
// broker so connected clients see changes live.
func NewBroadcast(b *sse.Broker) WriteHook {
	return WriteHook{
		Name:             "broadcast",
		EnabledByDefault: true,
		OnEntryWritten: func(wc WriteContext, _ *models.Entry) error {
			b.PublishEntryEvent(wc.Kind, wc.Date.String())
			return nil
		},
	}
}
