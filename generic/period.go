package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE RANGE - Inclusive span of calendar days
// =============================================================================

// DateRange is an inclusive range of calendar days. Start and End are
// normalised to midnight by NewDateRange.
//
// Examples:
//   - A timesheet week: Monday - Sunday
//   - The days touched by a trip: departure date - return date
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range covering the calendar days of from and to.
func NewDateRange(from, to time.Time) (DateRange, error) {
	r := DateRange{Start: StartOfDay(from), End: StartOfDay(to.In(from.Location()))}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// WeekOf returns the Monday-Sunday range containing t.
func WeekOf(t time.Time) DateRange {
	start := StartOfWeek(t)
	return DateRange{Start: start, End: AddDays(start, 6)}
}

// Validate rejects ranges whose end precedes their start.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidRange, r)
	}
	return nil
}

// Contains returns true if t's calendar day is within [Start, End].
func (r DateRange) Contains(t time.Time) bool {
	day := StartOfDay(t.In(r.Start.Location()))
	return !day.Before(r.Start) && !day.After(r.End)
}

// Len returns the number of calendar days in the range.
func (r DateRange) Len() int {
	return CalendarDaysBetween(r.Start, r.End) + 1
}

// Days returns every day in the range. Each element is a fresh value.
func (r DateRange) Days() []time.Time {
	n := r.Len()
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, AddDays(r.Start, i))
	}
	return days
}

// String returns a string representation of the range.
func (r DateRange) String() string {
	return "[" + FormatDate(r.Start) + ", " + FormatDate(r.End) + "]"
}
