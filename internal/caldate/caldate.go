// Package caldate reshapes the date strings produced by the model into the
// compact calendar form YYYYMMDDTHHMMSS and applies the small amount of
// calendar arithmetic the extraction pipeline needs.
//
// Timestamps are floating: no zone is attached and none is converted.
package caldate

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical timestamp layout.
const Layout = "20060102T150405"

const midnight = "000000"

// Normalize converts s into the canonical YYYYMMDDTHHMMSS form.
//
// Accepted shapes include compact timestamps, ISO-8601 with dashes and
// colons, a trailing Z, a trailing ±HH:MM or ±HHMM offset, fractional
// seconds, times truncated to hours or hours and minutes, and plain dates.
// The empty string is returned unchanged. Input that does not carry an
// eight digit date is returned with only its separators removed; callers
// check the result with Valid.
func Normalize(s string) string {
	if s == "" {
		return s
	}

	datePart, timePart := split(strings.TrimSpace(s))
	date := strings.NewReplacer("-", "", "/", "", ".", "").Replace(datePart)
	date = strings.TrimSuffix(strings.TrimSuffix(date, "Z"), "z")
	if len(date) < 8 {
		return date
	}
	date = date[:8]

	clock := cleanTime(timePart)
	if clock == "" {
		return date + "T" + midnight
	}
	if len(clock) > 6 {
		clock = clock[:6]
	}
	return date + "T" + clock + midnight[len(clock):]
}

// split separates the date from the time at the first T or space.
func split(s string) (string, string) {
	if i := strings.IndexAny(s, "Tt "); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// cleanTime strips the zone designator, offset, fractional seconds and
// separators from the time part, keeping the leading digits.
func cleanTime(s string) string {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "Z"), "z")
	if i := strings.IndexAny(s, "+-"); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexAny(s, ".,"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ":", "")

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// Valid reports whether ts is canonical and names a real date and time.
func Valid(ts string) bool {
	_, err := Parse(ts)
	return err == nil
}

// HasTime reports whether the raw model text carries a time of day.
// A time of exactly midnight counts as no time, since that is how models
// spell date-only values when forced into a timestamp.
func HasTime(raw string) bool {
	if raw == "" {
		return false
	}
	_, timePart := split(strings.TrimSpace(raw))
	clock := cleanTime(timePart)
	return strings.Trim(clock, "0") != ""
}

// Parse reads a canonical timestamp as a UTC wall-clock time.
func Parse(ts string) (time.Time, error) {
	if len(ts) != len(Layout) {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: want %d characters", ts, len(Layout))
	}
	t, err := time.Parse(Layout, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", ts, err)
	}
	return t, nil
}

// Format renders t's wall clock in the canonical layout.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// AddDays shifts ts by n calendar days. Invalid input is returned unchanged.
func AddDays(ts string, n int) string {
	t, err := Parse(ts)
	if err != nil {
		return ts
	}
	return Format(t.AddDate(0, 0, n))
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b string) bool {
	if len(a) < 8 || len(b) < 8 {
		return false
	}
	return a[:8] == b[:8]
}

// AdvanceYear corrects a timestamp whose year lies before the year of ref.
// The result keeps month, day and time and takes the smallest year, not
// earlier than ref's year, in which that date exists and falls on or after
// ref's calendar day. February 29 therefore moves to a leap year.
// Timestamps in or after ref's year, and invalid input, are returned
// unchanged.
func AdvanceYear(ts string, ref time.Time) string {
	t, err := Parse(ts)
	if err != nil || t.Year() >= ref.Year() {
		return ts
	}

	floor := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	for year := ref.Year(); ; year++ {
		if t.Month() == time.February && t.Day() == 29 && !isLeap(year) {
			continue
		}
		moved := time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
		if !moved.Before(floor) {
			return Format(moved)
		}
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// ReferenceDate renders t as MM/DD/YYYY, the form used in prompts.
func ReferenceDate(t time.Time) string {
	return t.Format("01/02/2006")
}

// Today returns the canonical midnight timestamp of t's calendar date.
func Today(t time.Time) string {
	return t.Format("20060102") + "T" + midnight
}
