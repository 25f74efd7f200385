// Package timeutil provides shared helpers for UTC instants and
// calendar days. Days are represented as midnight-UTC time.Time
// values; the string form is always YYYY-MM-DD.
package timeutil

import "time"

// DayFormat is the canonical calendar-day layout.
const DayFormat = "2006-01-02"

// Format returns t as an RFC3339 UTC string with millisecond
// precision when present, or "" for the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.999Z07:00")
}

// Ptr returns a pointer to the formatted time, or nil for the
// zero time. Used for nullable timestamp fields in JSON output.
func Ptr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := Format(t)
	return &s
}

// ParseDay parses a strict YYYY-MM-DD string into midnight UTC.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayFormat, s)
}

// FormatDay returns the YYYY-MM-DD form of t's UTC calendar day.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NextDay returns midnight UTC of the day after d.
func NextDay(d time.Time) time.Time {
	return DayOf(d).AddDate(0, 0, 1)
}

// DaysBetween returns the number of whole calendar days from a to b
// (negative when b precedes a).
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)) / (24 * time.Hour))
}
