package models

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-08-21")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2025-08-21" {
		t.Errorf("String() = %q", d.String())
	}
	if d.Weekday() != time.Thursday {
		t.Errorf("weekday = %v, want Thursday", d.Weekday())
	}
	if _, err := ParseDate("21/08/2025"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestWeekOf_MondayStart(t *testing.T) {
	// 2025-08-21 is a Thursday.
	r := WeekOf(NewDate(2025, 8, 21))
	if r.From.String() != "2025-08-18" || r.To.String() != "2025-08-24" {
		t.Errorf("week = %s..%s, want 2025-08-18..2025-08-24", r.From, r.To)
	}
	// A Monday starts its own week; a Sunday ends the prior one.
	r = WeekOf(NewDate(2025, 8, 18))
	if r.From.String() != "2025-08-18" {
		t.Errorf("monday week starts %s", r.From)
	}
	r = WeekOf(NewDate(2025, 8, 24))
	if r.From.String() != "2025-08-18" {
		t.Errorf("sunday week starts %s", r.From)
	}
}

func TestMonthOf(t *testing.T) {
	r := MonthOf(NewDate(2024, 2, 10))
	if r.From.String() != "2024-02-01" || r.To.String() != "2024-02-29" {
		t.Errorf("month = %s..%s, want leap february", r.From, r.To)
	}
}

func TestDateRange_Contains(t *testing.T) {
	r := DateRange{From: NewDate(2025, 8, 1), To: NewDate(2025, 8, 31)}
	if !r.Contains(NewDate(2025, 8, 1)) || !r.Contains(NewDate(2025, 8, 31)) {
		t.Error("range should include its bounds")
	}
	if r.Contains(NewDate(2025, 7, 31)) || r.Contains(NewDate(2025, 9, 1)) {
		t.Error("range should exclude outside days")
	}
}

func TestCountBullets(t *testing.T) {
	c := CountBullets([]Bullet{
		{Type: Task, Content: "two words", TaskState: Pending},
		{Type: Task, Content: "one", TaskState: Completed},
		{Type: Note, Content: "three little words"},
	})
	if c.Words != 6 {
		t.Errorf("words = %d, want 6", c.Words)
	}
	if c.Tasks != 2 || c.Notes != 1 || c.Events != 0 {
		t.Errorf("counts = %+v", c)
	}
}

func TestNewEntry_AssignsPositionalIDs(t *testing.T) {
	e := NewEntry(NewDate(2025, 8, 21), []Bullet{
		{Type: Task, Content: "a", TaskState: Pending},
		{Type: Note, Content: "b"},
	})
	if e.Bullets[0].ID != "b0" || e.Bullets[1].ID != "b1" {
		t.Errorf("ids = %q, %q", e.Bullets[0].ID, e.Bullets[1].ID)
	}
	if got := e.Bullet("b1"); got == nil || got.Content != "b" {
		t.Errorf("Bullet(b1) = %+v", got)
	}
	if e.Bullet("b9") != nil {
		t.Error("missing id should return nil")
	}
}
