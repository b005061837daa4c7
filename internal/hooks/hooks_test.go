package hooks

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/sse"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testWrite(t *testing.T) (WriteContext, *models.Entry) {
	t.Helper()
	d, err := models.ParseDate("2025-08-21")
	if err != nil {
		t.Fatal(err)
	}
	wc := WriteContext{
		Date:          d,
		WriteID:       "w-1",
		Kind:          "created",
		EntryLocation: "/journal/2025/08/21.md",
		IndexLocation: "/journal/.index/dagaz.db",
		Content:       "# Notes\nhello\n",
	}
	entry := models.NewEntry(d, []models.Bullet{{Type: models.Note, Content: "hello"}})
	return wc, entry
}

func TestDispatcher_RunsInRegistrationOrder(t *testing.T) {
	d := NewDispatcher(testLogger())
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		d.Register(WriteHook{
			Name: name,
			OnEntryWritten: func(WriteContext, *models.Entry) error {
				order = append(order, name)
				return nil
			},
		})
	}

	wc, entry := testWrite(t)
	d.Notify(wc, entry)

	if got := strings.Join(order, ","); got != "first,second,third" {
		t.Errorf("run order = %s, want registration order", got)
	}
}

func TestDispatcher_FailureDoesNotStopOthers(t *testing.T) {
	d := NewDispatcher(testLogger())
	var ran []string

	d.Register(WriteHook{
		Name: "failing",
		OnEntryWritten: func(WriteContext, *models.Entry) error {
			ran = append(ran, "failing")
			return errors.New("boom")
		},
	})
	d.Register(WriteHook{
		Name: "after",
		OnEntryWritten: func(WriteContext, *models.Entry) error {
			ran = append(ran, "after")
			return nil
		},
	})

	wc, entry := testWrite(t)
	d.Notify(wc, entry)

	if len(ran) != 2 || ran[1] != "after" {
		t.Errorf("ran = %v, want both hooks despite failure", ran)
	}
}

func TestDispatcher_NilHandlerIgnored(t *testing.T) {
	d := NewDispatcher(testLogger())
	d.Register(WriteHook{Name: "empty"})
	if n := len(d.Names()); n != 0 {
		t.Errorf("registered = %d, want nil handler dropped", n)
	}
}

func TestDispatcher_NotifyWithoutHooks(t *testing.T) {
	d := NewDispatcher(testLogger())
	wc, entry := testWrite(t)
	d.Notify(wc, entry) // must not panic
}

func TestAuditLog_WritesRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	hook := NewAuditLog(path, 1, 1)

	if hook.Name != "audit_log" {
		t.Errorf("name = %q", hook.Name)
	}
	if hook.EnabledByDefault {
		t.Error("audit log should be opt-in")
	}

	wc, entry := testWrite(t)
	if err := hook.OnEntryWritten(wc, entry); err != nil {
		t.Fatalf("OnEntryWritten: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	var rec auditRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &rec); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if rec.WriteID != "w-1" || rec.Date != "2025-08-21" || rec.Kind != "created" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Bytes != len(wc.Content) {
		t.Errorf("bytes = %d, want %d", rec.Bytes, len(wc.Content))
	}
	if rec.Bullets != 1 {
		t.Errorf("bullets = %d, want 1", rec.Bullets)
	}
}

func TestBroadcast_PublishesEntryEvent(t *testing.T) {
	b := sse.NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	hook := NewBroadcast(b)
	if !hook.EnabledByDefault {
		t.Error("broadcast should be on by default")
	}
	wc, entry := testWrite(t)
	if err := hook.OnEntryWritten(wc, entry); err != nil {
		t.Fatalf("OnEntryWritten: %v", err)
	}

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: entry.created") || !strings.Contains(s, "2025-08-21") {
			t.Errorf("unexpected event %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
	}
}
