package timesheet_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/allowance"
	"github.com/warp/timesheet-engine/expense"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(month time.Month, day int) time.Time {
	return time.Date(2025, month, day, 0, 0, 0, 0, time.UTC)
}

func hours(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var now = time.Date(2025, time.March, 17, 9, 0, 0, 0, time.UTC)

func entry(day time.Time, h string) timesheet.DayEntry {
	return timesheet.DayEntry{UserID: "u-1", ProjectID: "p-1", Date: day, Hours: hours(h)}
}

// =============================================================================
// DAY ENTRIES
// =============================================================================

func TestDayEntry_Validate(t *testing.T) {
	assert.NoError(t, entry(date(time.March, 10), "8").Validate())

	for _, h := range []string{"0", "-1", "24.5"} {
		err := entry(date(time.March, 10), h).Validate()
		assert.ErrorIs(t, err, generic.ErrValidation, "hours %s", h)
	}

	e := entry(date(time.March, 10), "8")
	e.ProjectID = ""
	assert.ErrorIs(t, e.Validate(), generic.ErrValidation)
}

func TestDayEntry_TripValidation(t *testing.T) {
	e := entry(date(time.March, 10), "8")
	e.Trip = &timesheet.Trip{
		Start:       time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC),
		CountryCode: "DE",
	}
	assert.ErrorIs(t, e.Validate(), allowance.ErrInvalidInterval)

	e.Trip.End = e.Trip.End.Add(9 * time.Hour)
	e.Trip.CountryCode = "DEU"
	assert.ErrorIs(t, e.Validate(), generic.ErrValidation)

	e.Trip.CountryCode = "DE"
	assert.NoError(t, e.Validate())
}

func TestDayEntry_PriceTrip(t *testing.T) {
	// GIVEN: a day entry for a 4-day trip (20:00 day 1 -> 06:00 day 4)
	e := entry(date(time.March, 10), "4")
	e.Trip = &timesheet.Trip{
		Start:       time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC),
		End:         time.Date(2025, time.March, 13, 6, 0, 0, 0, time.UTC),
		CountryCode: "FR",
	}

	priced, res, err := e.PriceTrip(allowance.NewRates(40, 80))
	require.NoError(t, err)
	assert.True(t, hours("160").Equal(priced.Allowance))
	assert.Len(t, res.Breakdown, 4)
	assert.True(t, e.Allowance.IsZero(), "original entry is not modified")

	plain, _, err := entry(date(time.March, 10), "8").PriceTrip(allowance.NewRates(40, 80))
	require.NoError(t, err)
	assert.True(t, plain.Allowance.IsZero())

	_, _, err = e.PriceTrip(allowance.NewRates(-1, 80))
	assert.ErrorIs(t, err, allowance.ErrInvalidRate)
}

// =============================================================================
// WORKFLOW
// =============================================================================

func TestTimesheet_SubmitApprove(t *testing.T) {
	ts := timesheet.NewTimesheet("u-1", date(time.March, 13)) // Thursday
	assert.Equal(t, date(time.March, 10), ts.WeekStart)
	assert.Equal(t, timesheet.StatusDraft, ts.Status)
	assert.False(t, ts.Locked())

	require.NoError(t, ts.Submit(timesheet.Totals{Hours: hours("40")}, now))
	assert.Equal(t, timesheet.StatusSubmitted, ts.Status)
	require.NotNil(t, ts.SubmittedAt)
	assert.True(t, ts.Locked())

	require.NoError(t, ts.Approve("admin-1", now.Add(time.Hour)))
	assert.Equal(t, timesheet.StatusApproved, ts.Status)
	assert.Equal(t, generic.UserID("admin-1"), ts.DecidedBy)
	assert.True(t, ts.Locked())
}

func TestTimesheet_RejectAndResubmit(t *testing.T) {
	ts := timesheet.NewTimesheet("u-1", date(time.March, 10))
	require.NoError(t, ts.Submit(timesheet.Totals{}, now))

	err := ts.Reject("admin-1", "", now)
	assert.ErrorIs(t, err, generic.ErrValidation, "reason is required")

	require.NoError(t, ts.Reject("admin-1", "missing Friday", now))
	assert.Equal(t, timesheet.StatusRejected, ts.Status)
	assert.Equal(t, "missing Friday", ts.RejectionReason)
	assert.False(t, ts.Locked())

	require.NoError(t, ts.Submit(timesheet.Totals{Entries: 5}, now.Add(time.Hour)))
	assert.Equal(t, timesheet.StatusSubmitted, ts.Status)
	assert.Empty(t, ts.RejectionReason)
	assert.Nil(t, ts.DecidedAt)
	assert.Equal(t, 5, ts.Totals.Entries)
}

func TestTimesheet_IllegalTransitions(t *testing.T) {
	cases := []struct {
		name string
		from timesheet.Status
		act  func(ts *timesheet.Timesheet) error
	}{
		{"approve draft", timesheet.StatusDraft, func(ts *timesheet.Timesheet) error { return ts.Approve("a", now) }},
		{"reject draft", timesheet.StatusDraft, func(ts *timesheet.Timesheet) error { return ts.Reject("a", "no", now) }},
		{"submit submitted", timesheet.StatusSubmitted, func(ts *timesheet.Timesheet) error { return ts.Submit(timesheet.Totals{}, now) }},
		{"submit approved", timesheet.StatusApproved, func(ts *timesheet.Timesheet) error { return ts.Submit(timesheet.Totals{}, now) }},
		{"reject approved", timesheet.StatusApproved, func(ts *timesheet.Timesheet) error { return ts.Reject("a", "no", now) }},
		{"approve rejected", timesheet.StatusRejected, func(ts *timesheet.Timesheet) error { return ts.Approve("a", now) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := timesheet.Timesheet{Status: tc.from}
			err := tc.act(&ts)
			require.ErrorIs(t, err, generic.ErrInvalidTransition)
			var te *timesheet.TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tc.from, te.From)
			assert.Equal(t, tc.from, ts.Status, "status unchanged")
		})
	}
}

func TestTimesheet_ApproveRequiresApprover(t *testing.T) {
	ts := timesheet.Timesheet{Status: timesheet.StatusSubmitted}
	assert.ErrorIs(t, ts.Approve("", now), generic.ErrValidation)
	assert.Equal(t, timesheet.StatusSubmitted, ts.Status)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummarize_OnlyCountsTheWeek(t *testing.T) {
	week := generic.WeekOf(date(time.March, 12))

	travel := entry(date(time.March, 10), "6.5")
	travel.Allowance = hours("40")
	entries := []timesheet.DayEntry{
		travel,
		entry(date(time.March, 11), "8"),
		entry(date(time.March, 16), "1.25"), // Sunday, still in week
		entry(date(time.March, 17), "8"),    // next Monday
	}
	expenses := []expense.Expense{
		{Date: date(time.March, 10), GrossBase: hours("120.10")},
		{Date: date(time.March, 9), GrossBase: hours("99")}, // previous Sunday
	}

	totals := timesheet.Summarize(week, entries, expenses)
	assert.Equal(t, 3, totals.Entries)
	assert.True(t, hours("15.75").Equal(totals.Hours), "hours %s", totals.Hours)
	assert.True(t, hours("40").Equal(totals.Allowance))
	assert.True(t, hours("120.10").Equal(totals.Expenses))
}
