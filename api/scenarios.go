/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos and UI work. Each scenario loads the default settings,
	then creates users, projects, day entries, expenses and timesheets.

AVAILABLE SCENARIOS:

	consultant-week: One consultant, one project, a full office week
	business-trip:   A Monday-night to Thursday-morning trip to France with
	                 hotel and train expenses in two currencies
	approval-queue:  Last week's timesheets of two consultants waiting for a
	                 decision, plus one rejected week

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Apply the default settings (VAT, currencies, country rates)
 3. Create users and projects
 4. Add day entries (trips priced like POST /entries does)
 5. Optionally add expenses and timesheets

Dates are relative to the handler's clock, so the data always lands in the
current and previous week.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "business-trip"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/expense"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/seed"
	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "consultant-week",
		Name:        "Consultant Week",
		Description: "One consultant logging 8h a day on one project, Monday to Friday",
	},
	{
		ID:          "business-trip",
		Name:        "Business Trip",
		Description: "Monday 20:00 to Thursday 06:00 in France, hotel and train expenses",
	},
	{
		ID:          "approval-queue",
		Name:        "Approval Queue",
		Description: "Two submitted timesheets and one rejected week from last week",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}

	loaders := map[string]func(context.Context) error{
		"consultant-week": h.loadConsultantWeekScenario,
		"business-trip":   h.loadBusinessTripScenario,
		"approval-queue":  h.loadApprovalQueueScenario,
	}
	load, ok := loaders[req.ScenarioID]
	if !ok {
		h.fail(w, r, "Unknown scenario", generic.Invalid("scenario_id", "unknown scenario %q", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if _, err := seed.Apply(ctx, h.Store, seed.Default()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load default settings", err)
		return
	}
	if err := load(ctx); err != nil {
		h.fail(w, r, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.Logger.InfoContext(ctx, "scenario loaded", "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data, settings included.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadConsultantWeekScenario(ctx context.Context) error {
	if err := h.createDirectory(ctx,
		[]sqlite.User{{ID: "user-ada", Name: "Ada Lovelace", Email: "ada@example.com", Role: sqlite.RoleConsultant, Active: true}},
		sqlite.Project{ID: "proj-acme", Code: "ACME-01", Name: "Billing migration", Client: "ACME", Active: true},
	); err != nil {
		return err
	}

	week := generic.WeekOf(h.now())
	for i, day := range week.Days() {
		if generic.IsWeekend(day) {
			continue
		}
		entry := timesheet.DayEntry{
			ID:        fmt.Sprintf("entry-ada-%d", i+1),
			UserID:    "user-ada",
			ProjectID: "proj-acme",
			Date:      day,
			Hours:     decimal.NewFromInt(8),
			Notes:     "Office day",
		}
		if err := h.addEntry(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadBusinessTripScenario(ctx context.Context) error {
	if err := h.createDirectory(ctx,
		[]sqlite.User{{ID: "user-grace", Name: "Grace Hopper", Email: "grace@example.com", Role: sqlite.RoleConsultant, Active: true}},
		sqlite.Project{ID: "proj-paris", Code: "PAR-07", Name: "Paris rollout", Client: "Société Exemple", Active: true},
	); err != nil {
		return err
	}

	monday := generic.WeekOf(h.now()).Start
	departure := monday.Add(20 * time.Hour)
	back := generic.AddDays(monday, 3).Add(6 * time.Hour)

	trip := timesheet.DayEntry{
		ID:        "entry-grace-trip",
		UserID:    "user-grace",
		ProjectID: "proj-paris",
		Date:      monday,
		Hours:     decimal.NewFromInt(8),
		Notes:     "Workshop on site",
		Trip:      &timesheet.Trip{Start: departure, End: back, CountryCode: "FR"},
	}
	if err := h.addEntry(ctx, trip); err != nil {
		return err
	}
	for i := 1; i <= 3; i++ {
		entry := timesheet.DayEntry{
			ID:        fmt.Sprintf("entry-grace-%d", i),
			UserID:    "user-grace",
			ProjectID: "proj-paris",
			Date:      generic.AddDays(monday, i),
			Hours:     decimal.NewFromInt(8),
		}
		if err := h.addEntry(ctx, entry); err != nil {
			return err
		}
	}

	expenses := []expense.Expense{
		{
			ID: "exp-grace-hotel", UserID: "user-grace", ProjectID: "proj-paris",
			Date: generic.AddDays(monday, 3), Description: "Hotel, 3 nights",
			Category: expense.CategoryLodging, Gross: decimal.RequireFromString("462.00"),
			Currency: "EUR", VATCode: "RED",
		},
		{
			ID: "exp-grace-train", UserID: "user-grace", ProjectID: "proj-paris",
			Date: monday, Description: "Night train via Basel",
			Category: expense.CategoryTransport, Gross: decimal.RequireFromString("189.50"),
			Currency: "CHF", VATCode: "STD",
		},
	}
	for _, x := range expenses {
		if err := h.addExpense(ctx, x); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadApprovalQueueScenario(ctx context.Context) error {
	users := []sqlite.User{
		{ID: "user-alan", Name: "Alan Turing", Email: "alan@example.com", Role: sqlite.RoleConsultant, Active: true},
		{ID: "user-edsger", Name: "Edsger Dijkstra", Email: "edsger@example.com", Role: sqlite.RoleConsultant, Active: true},
		{ID: "user-barbara", Name: "Barbara Liskov", Email: "barbara@example.com", Role: sqlite.RoleAdmin, Active: true},
	}
	if err := h.createDirectory(ctx, users,
		sqlite.Project{ID: "proj-core", Code: "CORE-02", Name: "Core banking", Client: "Bank AG", Active: true},
	); err != nil {
		return err
	}

	lastWeek := generic.WeekOf(generic.AddDays(generic.StartOfDay(h.now()), -7))
	now := h.now()
	for _, userID := range []string{"user-alan", "user-edsger"} {
		for i, day := range lastWeek.Days() {
			if generic.IsWeekend(day) {
				continue
			}
			entry := timesheet.DayEntry{
				ID:        fmt.Sprintf("entry-%s-%d", userID, i+1),
				UserID:    generic.UserID(userID),
				ProjectID: "proj-core",
				Date:      day,
				Hours:     decimal.RequireFromString("7.5"),
			}
			if err := h.addEntry(ctx, entry); err != nil {
				return err
			}
		}
		if err := h.submitWeek(ctx, userID, lastWeek, now); err != nil {
			return err
		}
	}

	// A week two weeks back that came back with a question.
	older := generic.WeekOf(generic.AddDays(lastWeek.Start, -7))
	entry := timesheet.DayEntry{
		ID: "entry-user-alan-old", UserID: "user-alan", ProjectID: "proj-core",
		Date: older.Start, Hours: decimal.NewFromInt(12),
	}
	if err := h.addEntry(ctx, entry); err != nil {
		return err
	}
	if err := h.submitWeek(ctx, "user-alan", older, now); err != nil {
		return err
	}
	ts, err := h.Store.GetTimesheetForWeek(ctx, "user-alan", older.Start)
	if err != nil {
		return err
	}
	if err := ts.Reject("user-barbara", "12h on a Monday? Please split across days.", now); err != nil {
		return err
	}
	return h.Store.SaveTimesheet(ctx, *ts)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) createDirectory(ctx context.Context, users []sqlite.User, project sqlite.Project) error {
	if err := h.Store.SaveProject(ctx, project); err != nil {
		return err
	}
	for _, u := range users {
		if err := h.Store.SaveUser(ctx, u); err != nil {
			return err
		}
		alloc := sqlite.Allocation{
			ID:            "alloc-" + u.ID,
			UserID:        u.ID,
			ProjectID:     project.ID,
			Share:         decimal.NewFromInt(100),
			EffectiveFrom: generic.AddDays(generic.StartOfWeek(h.now()), -28),
		}
		if err := h.Store.SaveAllocation(ctx, alloc); err != nil {
			return err
		}
	}
	return nil
}

// addEntry prices the entry's trip with the stored country rates and saves it.
func (h *Handler) addEntry(ctx context.Context, e timesheet.DayEntry) error {
	e.Allowance = decimal.Zero
	e.CreatedAt = h.now()
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Trip != nil {
		rates, err := h.countryRates(ctx, e.Trip.CountryCode)
		if err != nil {
			return err
		}
		if e, _, err = e.PriceTrip(rates); err != nil {
			return err
		}
	}
	return h.Store.SaveDayEntry(ctx, e)
}

func (h *Handler) addExpense(ctx context.Context, x expense.Expense) error {
	vat, err := h.Store.GetVATRate(ctx, x.VATCode)
	if err != nil {
		return err
	}
	if vat == nil {
		return &generic.NotFoundError{Kind: "vat rate", ID: x.VATCode}
	}
	cur, err := h.currency(ctx, x.Currency)
	if err != nil {
		return err
	}
	if x, err = x.Price(*vat, cur, h.baseCurrency()); err != nil {
		return err
	}
	x.CreatedAt = h.now()
	return h.Store.SaveExpense(ctx, x)
}

func (h *Handler) submitWeek(ctx context.Context, userID string, week generic.DateRange, now time.Time) error {
	entries, err := h.Store.ListDayEntries(ctx, userID, week)
	if err != nil {
		return err
	}
	expenses, err := h.Store.ListExpenses(ctx, userID, week)
	if err != nil {
		return err
	}
	ts := timesheet.NewTimesheet(generic.UserID(userID), week.Start)
	if err := ts.Submit(timesheet.Summarize(week, entries, expenses), now); err != nil {
		return err
	}
	return h.Store.SaveTimesheet(ctx, ts)
}
