package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage form of a journal date.
const DateLayout = "2006-01-02"

// Date is a calendar day without time-of-day or zone. It is the unique
// key of an entry. The zero Date is no date.
type Date struct {
	t time.Time
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("models: parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// Today returns the current calendar day in local time.
func Today() Date {
	return DateOf(time.Now())
}

func (d Date) String() string { return d.t.Format(DateLayout) }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

// AddDays returns the day n days after d (negative n for before).
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// Time returns the day as midnight UTC.
func (d Date) Time() time.Time { return d.t }

// MarshalText renders the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a YYYY-MM-DD date.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive span of days.
type DateRange struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

// Day is the range covering a single day.
func Day(d Date) DateRange {
	return DateRange{From: d, To: d}
}

// WeekOf is the Monday-through-Sunday week containing d.
func WeekOf(d Date) DateRange {
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	start := d.AddDays(-offset)
	return DateRange{From: start, To: start.AddDays(6)}
}

// MonthOf is the calendar month containing d.
func MonthOf(d Date) DateRange {
	y, m, _ := d.t.Date()
	first := NewDate(y, m, 1)
	last := Date{t: first.t.AddDate(0, 1, -1)}
	return DateRange{From: first, To: last}
}

// Contains reports whether day falls within the range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}
