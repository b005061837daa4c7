package hooks

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/dagaz/internal/models"
)

type auditRecord struct {
	Time    string `json:"time"`
	WriteID string `json:"write_id"`
	Kind    string `json:"kind"`
	Date    string `json:"date"`
	Entry   string `json:"entry"`
	Bytes   int    `json:"bytes"`
	Bullets int    `json:"bullets"`
}

// NewAuditLog returns a hook that appends one JSON line per committed
// write to a size-rotated log file. The content itself is not recorded,
// only its length; the journal is its own record.
func NewAuditLog(path string, maxSizeMB, maxBackups int) WriteHook {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	return WriteHook{
		Name:             "audit_log",
		EnabledByDefault: false,
		OnEntryWritten: func(wc WriteContext, entry *models.Entry) error {
			rec := auditRecord{
				Time:    time.Now().UTC().Format(time.RFC3339),
				WriteID: wc.WriteID,
				Kind:    wc.Kind,
				Date:    wc.Date.String(),
				Entry:   wc.EntryLocation,
				Bytes:   len(wc.Content),
			}
			if entry != nil {
				rec.Bullets = len(entry.Bullets)
			}
			line, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("hooks: marshal audit record: %w", err)
			}
			if _, err := out.Write(append(line, '\n')); err != nil {
				return fmt.Errorf("hooks: write audit record: %w", err)
			}
			return nil
		},
	}
}
