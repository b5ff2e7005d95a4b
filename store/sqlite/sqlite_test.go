package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/allowance"
	"github.com/warp/timesheet-engine/expense"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUserAndProject(t *testing.T, store *sqlite.Store) {
	ctx := context.Background()
	require.NoError(t, store.SaveUser(ctx, sqlite.User{
		ID: "u-1", Name: "Ada", Email: "ada@example.com", Role: sqlite.RoleConsultant, Active: true,
	}))
	require.NoError(t, store.SaveProject(ctx, sqlite.Project{
		ID: "p-1", Code: "ACME-01", Name: "Migration", Client: "ACME", Active: true,
	}))
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// DIRECTORY
// =============================================================================

func TestUsers_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUserAndProject(t, store)

	u, err := store.GetUser(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, sqlite.RoleConsultant, u.Role)
	assert.True(t, u.Active)

	u.Role = sqlite.RoleAdmin
	require.NoError(t, store.SaveUser(ctx, *u))
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, sqlite.RoleAdmin, users[0].Role)

	missing, err := store.GetUser(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.DeleteUser(ctx, "u-1"))
	assert.ErrorIs(t, store.DeleteUser(ctx, "u-1"), generic.ErrNotFound)
}

func TestUsers_DuplicateEmailConflicts(t *testing.T) {
	store := newTestStore(t)
	seedUserAndProject(t, store)

	err := store.SaveUser(context.Background(), sqlite.User{ID: "u-2", Name: "Bob", Email: "ada@example.com", Role: sqlite.RoleConsultant})
	assert.ErrorIs(t, err, generic.ErrConflict)
}

func TestAllocations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUserAndProject(t, store)

	end := day(31)
	require.NoError(t, store.SaveAllocation(ctx, sqlite.Allocation{
		ID: "a-1", UserID: "u-1", ProjectID: "p-1", Share: dec("50"),
		EffectiveFrom: day(1), EffectiveTo: &end,
	}))

	byProject, err := store.GetAllocationsByProject(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.True(t, dec("50").Equal(byProject[0].Share))
	assert.True(t, byProject[0].ActiveOn(day(15).Add(10*time.Hour)))
	assert.False(t, byProject[0].ActiveOn(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))

	byUser, err := store.GetAllocationsByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	err = store.SaveAllocation(ctx, sqlite.Allocation{ID: "a-2", UserID: "ghost", ProjectID: "p-1", Share: dec("10"), EffectiveFrom: day(1)})
	assert.ErrorIs(t, err, generic.ErrValidation, "unknown user violates the foreign key")

	require.NoError(t, store.DeleteProject(ctx, "p-1"))
	byUser, err = store.GetAllocationsByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, byUser, "allocations cascade with the project")
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestSettings_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCountryRate(ctx, sqlite.CountryRate{
		Code: "DE", Name: "Germany", Rates: allowance.Rates{Partial: dec("14"), Full: dec("28")},
	}))
	require.NoError(t, store.SaveCountryRate(ctx, sqlite.CountryRate{
		Code: "DE", Name: "Germany", Rates: allowance.Rates{Partial: dec("14.50"), Full: dec("28")},
	}))
	c, err := store.GetCountryRate(ctx, "DE")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, dec("14.5").Equal(c.Rates.Partial), "upsert replaces rates")

	require.NoError(t, store.SaveVATRate(ctx, expense.VATRate{Code: "STD", Label: "Standard", Percent: dec("19")}))
	v, err := store.GetVATRate(ctx, "STD")
	require.NoError(t, err)
	assert.True(t, dec("19").Equal(v.Percent))

	require.NoError(t, store.SaveCurrency(ctx, expense.Currency{Code: "CHF", Name: "Swiss franc", RateToBase: dec("1.05")}))
	cur, err := store.GetCurrency(ctx, "CHF")
	require.NoError(t, err)
	assert.True(t, dec("1.05").Equal(cur.RateToBase))

	countries, err := store.ListCountryRates(ctx)
	require.NoError(t, err)
	assert.Len(t, countries, 1)

	require.NoError(t, store.DeleteVATRate(ctx, "STD"))
	v, err = store.GetVATRate(ctx, "STD")
	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.ErrorIs(t, store.DeleteCurrency(ctx, "XXX"), generic.ErrNotFound)
}

// =============================================================================
// ENTRIES, EXPENSES, TIMESHEETS
// =============================================================================

func TestDayEntries_TripSurvivesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUserAndProject(t, store)

	loc := time.FixedZone("CET", 60*60)
	entry := timesheet.DayEntry{
		ID: "e-1", UserID: "u-1", ProjectID: "p-1", Date: day(10), Hours: dec("7.5"),
		Trip: &timesheet.Trip{
			Start:       time.Date(2025, time.March, 10, 20, 0, 0, 0, loc),
			End:         time.Date(2025, time.March, 13, 6, 0, 0, 0, loc),
			CountryCode: "FR",
		},
		Allowance: dec("160"),
	}
	require.NoError(t, store.SaveDayEntry(ctx, entry))
	created := time.Date(2025, time.March, 17, 8, 30, 0, 0, loc)
	require.NoError(t, store.SaveDayEntry(ctx, timesheet.DayEntry{
		ID: "e-2", UserID: "u-1", ProjectID: "p-1", Date: day(17), Hours: dec("8"), Allowance: decimal.Zero,
		CreatedAt: created,
	}))

	week := generic.WeekOf(day(12))
	got, err := store.ListDayEntries(ctx, "u-1", week)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Trip)
	assert.True(t, entry.Trip.Start.Equal(got[0].Trip.Start))
	_, offset := got[0].Trip.Start.Zone()
	assert.Equal(t, 3600, offset, "trip keeps its UTC offset")
	assert.True(t, dec("160").Equal(got[0].Allowance))

	plain, err := store.GetDayEntry(ctx, "e-2")
	require.NoError(t, err)
	assert.Nil(t, plain.Trip)
	assert.True(t, created.Equal(plain.CreatedAt), "given creation time is stored")
	assert.False(t, got[0].CreatedAt.IsZero(), "missing creation time defaults to now")

	require.NoError(t, store.DeleteDayEntry(ctx, "e-1"))
	gone, err := store.GetDayEntry(ctx, "e-1")
	assert.NoError(t, err)
	assert.Nil(t, gone)
}

func TestExpenses_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUserAndProject(t, store)

	require.NoError(t, store.SaveExpense(ctx, expense.Expense{
		ID: "x-1", UserID: "u-1", Date: day(11), Description: "Train", Category: expense.CategoryTransport,
		Gross: dec("119"), Currency: "EUR", VATCode: "STD", Net: dec("100"), VAT: dec("19"), GrossBase: dec("119"),
	}))

	got, err := store.ListExpenses(ctx, "u-1", generic.WeekOf(day(11)))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expense.CategoryTransport, got[0].Category)
	assert.Empty(t, got[0].ProjectID)
	assert.True(t, dec("19").Equal(got[0].VAT))
}

func TestTimesheets_OnePerWeek(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUserAndProject(t, store)

	ts := timesheet.NewTimesheet("u-1", day(12))
	require.NoError(t, store.SaveTimesheet(ctx, ts))

	now := time.Date(2025, time.March, 17, 9, 0, 0, 0, time.UTC)
	require.NoError(t, ts.Submit(timesheet.Totals{Hours: dec("40"), Allowance: dec("80"), Expenses: dec("0"), Entries: 5}, now))
	require.NoError(t, store.SaveTimesheet(ctx, ts))

	got, err := store.GetTimesheetForWeek(ctx, "u-1", day(10))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, timesheet.StatusSubmitted, got.Status)
	assert.Equal(t, 5, got.Totals.Entries)
	require.NotNil(t, got.SubmittedAt)
	assert.True(t, now.Equal(*got.SubmittedAt))
	assert.Nil(t, got.DecidedAt)

	pending, err := store.ListTimesheetsByStatus(ctx, timesheet.StatusSubmitted)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	dup := timesheet.NewTimesheet("u-1", day(14))
	assert.ErrorIs(t, store.SaveTimesheet(ctx, dup), generic.ErrConflict)
}

func TestDeletes_RefusedForLockedWeeks(t *testing.T) {
	// GIVEN: A Sunday entry whose week is approved
	store := newTestStore(t)
	ctx := context.Background()
	seedUserAndProject(t, store)
	require.NoError(t, store.SaveDayEntry(ctx, timesheet.DayEntry{
		ID: "e-1", UserID: "u-1", ProjectID: "p-1", Date: day(16), Hours: dec("8"), Allowance: decimal.Zero,
	}))
	ts := timesheet.NewTimesheet("u-1", day(10))
	now := time.Date(2025, time.March, 17, 9, 0, 0, 0, time.UTC)
	require.NoError(t, ts.Submit(timesheet.Totals{Hours: dec("8"), Entries: 1}, now))
	require.NoError(t, ts.Approve("u-boss", now))
	require.NoError(t, store.SaveTimesheet(ctx, ts))

	// WHEN/THEN: Neither the project nor the user can be deleted
	assert.ErrorIs(t, store.DeleteProject(ctx, "p-1"), generic.ErrLocked)
	assert.ErrorIs(t, store.DeleteUser(ctx, "u-1"), generic.ErrLocked)

	kept, err := store.GetDayEntry(ctx, "e-1")
	require.NoError(t, err)
	assert.NotNil(t, kept)

	// AND: Missing rows still report not found
	assert.ErrorIs(t, store.DeleteProject(ctx, "p-missing"), generic.ErrNotFound)
	assert.ErrorIs(t, store.DeleteUser(ctx, "u-missing"), generic.ErrNotFound)
}

func TestReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedUserAndProject(t, store)

	require.NoError(t, store.Reset(ctx))
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
