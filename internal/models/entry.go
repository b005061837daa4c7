// Package models defines the domain types for Dagaz.
package models

import (
	"fmt"
	"strings"
)

// BulletType classifies a single journal bullet.
type BulletType string

const (
	Task        BulletType = "task"
	Event       BulletType = "event"
	Note        BulletType = "note"
	Priority    BulletType = "priority"
	Inspiration BulletType = "inspiration"
	Insight     BulletType = "insight"
	Misstep     BulletType = "misstep"
)

// BulletTypes lists all types in canonical section order. Parsing and
// serialization both follow this order, which is what keeps the
// normalization round trip stable.
var BulletTypes = []BulletType{Task, Event, Note, Priority, Inspiration, Insight, Misstep}

// Valid reports whether t is a known bullet type.
func (t BulletType) Valid() bool {
	for _, known := range BulletTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseBulletType parses a bullet type name.
func ParseBulletType(s string) (BulletType, error) {
	t := BulletType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("models: unknown bullet type %q", s)
	}
	return t, nil
}

// TaskState is the lifecycle state of a Task bullet.
type TaskState string

const (
	Pending   TaskState = "pending"
	Completed TaskState = "completed"
	Migrated  TaskState = "migrated"
	Scheduled TaskState = "scheduled"
)

// Valid reports whether s is a known task state.
func (s TaskState) Valid() bool {
	switch s {
	case Pending, Completed, Migrated, Scheduled:
		return true
	}
	return false
}

// Bullet is one typed line of rapid logging within a day. TaskState is
// set only for Task bullets; it is empty for every other type.
type Bullet struct {
	ID        string     `json:"id"`
	Type      BulletType `json:"type"`
	Content   string     `json:"content"`
	TaskState TaskState  `json:"task_state,omitempty"`
}

// Counts are the derived aggregates of one entry. They are always
// recomputed from the bullets, never adjusted incrementally.
type Counts struct {
	Words        int `json:"words"`
	Tasks        int `json:"tasks"`
	Events       int `json:"events"`
	Notes        int `json:"notes"`
	Priorities   int `json:"priorities"`
	Inspirations int `json:"inspirations"`
	Insights     int `json:"insights"`
	Missteps     int `json:"missteps"`
}

// ByType returns the count for one bullet type.
func (c Counts) ByType(t BulletType) int {
	switch t {
	case Task:
		return c.Tasks
	case Event:
		return c.Events
	case Note:
		return c.Notes
	case Priority:
		return c.Priorities
	case Inspiration:
		return c.Inspirations
	case Insight:
		return c.Insights
	case Misstep:
		return c.Missteps
	}
	return 0
}

// CountBullets derives the aggregates for a bullet sequence. Words are
// whitespace-delimited tokens across all bullet content.
func CountBullets(bullets []Bullet) Counts {
	var c Counts
	for _, b := range bullets {
		c.Words += len(strings.Fields(b.Content))
		switch b.Type {
		case Task:
			c.Tasks++
		case Event:
			c.Events++
		case Note:
			c.Notes++
		case Priority:
			c.Priorities++
		case Inspiration:
			c.Inspirations++
		case Insight:
			c.Insights++
		case Misstep:
			c.Missteps++
		}
	}
	return c
}

// Entry is one day of the journal: an ordered bullet sequence plus its
// derived counts. Bullet order within a day is the basis of bullet
// identity, so IDs are positional.
type Entry struct {
	Date    Date     `json:"date"`
	Bullets []Bullet `json:"bullets"`
	Counts  Counts   `json:"counts"`
}

// NewEntry assembles an entry from parsed bullets, assigning positional
// IDs and computing the aggregates.
func NewEntry(date Date, bullets []Bullet) *Entry {
	for i := range bullets {
		bullets[i].ID = fmt.Sprintf("b%d", i)
	}
	return &Entry{Date: date, Bullets: bullets, Counts: CountBullets(bullets)}
}

// IsEmpty reports whether the entry has no bullets. Empty entries are
// not stored; writing one removes the day.
func (e *Entry) IsEmpty() bool { return e == nil || len(e.Bullets) == 0 }

// Bullet returns the bullet with the given ID, or nil.
func (e *Entry) Bullet(id string) *Bullet {
	for i := range e.Bullets {
		if e.Bullets[i].ID == id {
			return &e.Bullets[i]
		}
	}
	return nil
}

// Reference is a directed, typed edge from one day's entry to another,
// extracted from bullet content.
type Reference struct {
	Source Date   `json:"source"`
	Target Date   `json:"target"`
	Type   string `json:"type"`
}
