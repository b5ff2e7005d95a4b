package generic_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/generic"
)

func TestDayBoundaries(t *testing.T) {
	tm := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), generic.StartOfDay(tm))
	assert.Equal(t, time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC), generic.StartOfNextDay(tm))
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), generic.StartOfNextDay(time.Date(2025, time.March, 31, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, 14*time.Hour+30*time.Minute, tm.Sub(generic.StartOfDay(tm)), "input is not modified")
}

func TestSameDay_AndCalendarDays(t *testing.T) {
	a := time.Date(2025, time.March, 10, 23, 0, 0, 0, time.UTC)
	b := time.Date(2025, time.March, 11, 1, 0, 0, 0, time.UTC)

	assert.False(t, generic.SameDay(a, b))
	assert.Equal(t, 1, generic.CalendarDaysBetween(a, b))
	assert.Equal(t, 0, generic.CalendarDaysBetween(a, a))
	assert.Equal(t, 365, generic.CalendarDaysBetween(a, a.AddDate(1, 0, 0)))

	loc := time.FixedZone("UTC+2", 2*60*60)
	assert.True(t, generic.SameDay(b.In(loc), a.In(loc)), "both on March 11 in UTC+2")
}

func TestStartOfWeek(t *testing.T) {
	monday := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i).Add(13 * time.Hour)
		assert.Equal(t, monday, generic.StartOfWeek(day), day.Weekday().String())
	}
	assert.True(t, generic.IsWeekend(monday.AddDate(0, 0, 5)))
	assert.False(t, generic.IsWeekend(monday))
}

func TestParseDateTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-10T09:00", time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)},
		{"2025-03-10 09:00:30", time.Date(2025, time.March, 10, 9, 0, 30, 0, time.UTC)},
		{"2025-03-10T09:00:00Z", time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)},
		{"2025-03-10T11:00:00+02:00", time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := generic.ParseDateTime(tc.in, time.UTC)
		require.NoError(t, err, tc.in)
		assert.True(t, tc.want.Equal(got), "%s: got %s", tc.in, got)
	}

	berlin, err := generic.ParseDateTime("2025-03-10T23:30:00+01:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 10, berlin.Day(), "offset is kept, not converted to loc")

	_, err = generic.ParseDateTime("yesterday", time.UTC)
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = generic.ParseDate("2025-13-01", time.UTC)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestDateRange(t *testing.T) {
	from := time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 13, 6, 0, 0, 0, time.UTC)

	r, err := generic.NewDateRange(from, to)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Len())
	assert.Len(t, r.Days(), 4)
	assert.Equal(t, "[2025-03-10, 2025-03-13]", r.String())
	assert.True(t, r.Contains(to))
	assert.False(t, r.Contains(to.AddDate(0, 0, 1)))

	_, err = generic.NewDateRange(to, from)
	assert.ErrorIs(t, err, generic.ErrInvalidRange)
	assert.True(t, generic.IsClientError(err))

	week := generic.WeekOf(from)
	assert.Equal(t, 7, week.Len())
	assert.Equal(t, time.Sunday, week.End.Weekday())
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.13", generic.RoundMoney(decimal.RequireFromString("0.125")).String())
	assert.Equal(t, "10.01", generic.SumMoney(decimal.RequireFromString("5.004"), decimal.RequireFromString("5.004")).String())

	d, err := generic.ParseAmount(" 12,50 ")
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())

	_, err = generic.ParseAmount("twelve")
	assert.ErrorIs(t, err, generic.ErrValidation)

	assert.Len(t, generic.NewID(), 36)
	assert.NotEqual(t, generic.NewID(), generic.NewID())
}

func TestErrorHelpers(t *testing.T) {
	nf := &generic.NotFoundError{Kind: "user", ID: "u-1"}
	assert.True(t, generic.IsNotFound(nf))
	assert.Equal(t, `user "u-1" not found`, nf.Error())
	assert.True(t, generic.IsClientError(generic.Invalid("hours", "bad")))
	assert.True(t, generic.IsConflict(generic.ErrLocked))
	assert.False(t, generic.IsConflict(generic.ErrNotFound))
}
