package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DAY BOUNDARIES - Calendar-day arithmetic on immutable time.Time values
// =============================================================================
//
// Every helper returns a new value; nothing here mutates its input. Days are
// computed in the wall clock of the value's own location, so a caller that
// wants Europe/Berlin days passes Europe/Berlin times.

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfNextDay returns midnight of the day after t's calendar day.
// It is the exclusive end of t's day.
func StartOfNextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// AddDays moves a day-aligned value by n calendar days, staying on midnight
// across DST changes.
func AddDays(day time.Time, n int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, day.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
// b is read in a's location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// CalendarDaysBetween returns the number of midnights crossed going from a to b.
// Same date gives 0, consecutive dates give 1.
func CalendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	// UTC dates avoid 23h/25h days skewing the division.
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// StartOfWeek returns the Monday of t's ISO week at midnight.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return AddDays(StartOfDay(t), -offset)
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// =============================================================================
// PARSING
// =============================================================================

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", ErrValidation, s)
	}
	return t, nil
}

// ParseDateTime accepts RFC3339 timestamps and zone-less "YYYY-MM-DDTHH:MM[:SS]"
// values. Zone-less values are read in loc; an explicit offset is kept, so
// calendar days follow the wall clock the caller wrote.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{DateTimeLayout, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date-time %q", ErrValidation, s)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }
