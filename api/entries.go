package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/allowance"
	"github.com/warp/timesheet-engine/expense"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

var one = decimal.NewFromInt(1)

// =============================================================================
// DAY ENTRY HANDLERS
// =============================================================================

// ListEntries returns a user's entries between ?from= and ?to= (inclusive).
// Without a range the current week is returned.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")
	if _, err := h.requireUser(ctx, userID); err != nil {
		h.fail(w, r, "Failed to get user", err)
		return
	}
	period, err := h.queryRange(r)
	if err != nil {
		h.fail(w, r, "Invalid range", err)
		return
	}

	entries, err := h.Store.ListDayEntries(ctx, userID, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEntry logs a day of work. A trip on the entry is priced with the
// destination's current rates and the allowance is stored with the entry.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")
	if _, err := h.requireUser(ctx, userID); err != nil {
		h.fail(w, r, "Failed to get user", err)
		return
	}

	var req CreateEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	entry, err := entryFromRequest(userID, req)
	if err != nil {
		h.fail(w, r, "Invalid entry", err)
		return
	}
	if _, err := h.requireProject(ctx, req.ProjectID); err != nil {
		h.fail(w, r, "Failed to get project", err)
		return
	}
	if err := h.ensureWeekOpen(ctx, userID, entry.Date); err != nil {
		h.fail(w, r, "Week is locked", err)
		return
	}

	var priced allowance.Result
	if entry.Trip != nil {
		rates, err := h.countryRates(ctx, entry.Trip.CountryCode)
		if err != nil {
			h.fail(w, r, "Cannot resolve allowance rates", err)
			return
		}
		entry, priced, err = entry.PriceTrip(rates)
		if err != nil {
			h.fail(w, r, "Invalid trip", err)
			return
		}
	}

	entry.CreatedAt = h.now()
	if err := h.Store.SaveDayEntry(ctx, entry); err != nil {
		h.fail(w, r, "Failed to save entry", err)
		return
	}

	h.Logger.InfoContext(ctx, "day entry created",
		"user_id", userID, "entry_id", entry.ID, "date", generic.FormatDate(entry.Date),
		"allowance", entry.Allowance.StringFixed(2))

	dto := toEntryDTO(entry)
	if entry.Trip != nil {
		dto.Breakdown = toDayAllowanceDTOs(priced.Breakdown)
	}
	writeJSON(w, http.StatusCreated, dto)
}

func entryFromRequest(userID string, req CreateEntryRequest) (timesheet.DayEntry, error) {
	date, err := generic.ParseDate(req.Date, time.UTC)
	if err != nil {
		return timesheet.DayEntry{}, err
	}
	entry := timesheet.DayEntry{
		ID:        generic.NewID(),
		UserID:    generic.UserID(userID),
		ProjectID: generic.ProjectID(req.ProjectID),
		Date:      date,
		Hours:     req.Hours,
		Notes:     strings.TrimSpace(req.Notes),
		Allowance: decimal.Zero,
	}
	if req.Trip != nil {
		start, err := generic.ParseDateTime(req.Trip.Start, time.UTC)
		if err != nil {
			return timesheet.DayEntry{}, err
		}
		end, err := generic.ParseDateTime(req.Trip.End, time.UTC)
		if err != nil {
			return timesheet.DayEntry{}, err
		}
		entry.Trip = &timesheet.Trip{
			Start:       start,
			End:         end,
			CountryCode: strings.ToUpper(strings.TrimSpace(req.Trip.CountryCode)),
		}
	}
	return entry, entry.Validate()
}

// DeleteEntry removes an entry unless its week is locked.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	entry, err := h.Store.GetDayEntry(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get entry", err)
		return
	}
	if entry == nil {
		h.fail(w, r, "Entry not found", &generic.NotFoundError{Kind: "entry", ID: id})
		return
	}
	if err := h.ensureWeekOpen(ctx, string(entry.UserID), entry.Date); err != nil {
		h.fail(w, r, "Week is locked", err)
		return
	}

	if err := h.Store.DeleteDayEntry(ctx, id); err != nil {
		h.fail(w, r, "Failed to delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// ListExpenses returns a user's expenses between ?from= and ?to=.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")
	if _, err := h.requireUser(ctx, userID); err != nil {
		h.fail(w, r, "Failed to get user", err)
		return
	}
	period, err := h.queryRange(r)
	if err != nil {
		h.fail(w, r, "Invalid range", err)
		return
	}

	expenses, err := h.Store.ListExpenses(ctx, userID, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expenses", err)
		return
	}

	dtos := make([]ExpenseDTO, len(expenses))
	for i, x := range expenses {
		dtos[i] = toExpenseDTO(x)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExpense books an expense, splitting VAT and converting to the base
// currency with the configured rates.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")
	if _, err := h.requireUser(ctx, userID); err != nil {
		h.fail(w, r, "Failed to get user", err)
		return
	}

	var req CreateExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	date, err := generic.ParseDate(req.Date, time.UTC)
	if err != nil {
		h.fail(w, r, "Invalid expense", err)
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.BaseCurrency
	}

	x := expense.Expense{
		ID:          generic.NewID(),
		UserID:      generic.UserID(userID),
		ProjectID:   generic.ProjectID(req.ProjectID),
		Date:        date,
		Description: strings.TrimSpace(req.Description),
		Category:    expense.Category(strings.ToLower(req.Category)),
		Gross:       req.Gross,
		Currency:    currency,
		VATCode:     strings.ToUpper(strings.TrimSpace(req.VATCode)),
	}
	if err := x.Validate(); err != nil {
		h.fail(w, r, "Invalid expense", err)
		return
	}
	if x.VATCode == "" {
		h.fail(w, r, "Invalid expense", generic.Invalid("vat_code", "is required"))
		return
	}
	if x.ProjectID != "" {
		if _, err := h.requireProject(ctx, req.ProjectID); err != nil {
			h.fail(w, r, "Failed to get project", err)
			return
		}
	}
	if err := h.ensureWeekOpen(ctx, userID, date); err != nil {
		h.fail(w, r, "Week is locked", err)
		return
	}

	vat, err := h.Store.GetVATRate(ctx, x.VATCode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get VAT rate", err)
		return
	}
	if vat == nil {
		h.fail(w, r, "Unknown VAT rate", &generic.NotFoundError{Kind: "vat rate", ID: x.VATCode})
		return
	}
	cur, err := h.currency(ctx, currency)
	if err != nil {
		h.fail(w, r, "Unknown currency", err)
		return
	}

	x, err = x.Price(*vat, cur, h.baseCurrency())
	if err != nil {
		h.fail(w, r, "Invalid expense", err)
		return
	}
	x.CreatedAt = h.now()
	if err := h.Store.SaveExpense(ctx, x); err != nil {
		h.fail(w, r, "Failed to save expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseDTO(x))
}

// currency resolves a currency code. The base currency always converts at 1,
// whatever the table says.
func (h *Handler) currency(ctx context.Context, code string) (expense.Currency, error) {
	if code == h.BaseCurrency {
		return h.baseCurrency(), nil
	}
	c, err := h.Store.GetCurrency(ctx, code)
	if err != nil {
		return expense.Currency{}, err
	}
	if c == nil {
		return expense.Currency{}, &generic.NotFoundError{Kind: "currency", ID: code}
	}
	return *c, nil
}

func (h *Handler) baseCurrency() expense.Currency {
	return expense.Currency{Code: h.BaseCurrency, Name: h.BaseCurrency, RateToBase: one}
}

// DeleteExpense removes an expense unless its week is locked.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	x, err := h.Store.GetExpense(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get expense", err)
		return
	}
	if x == nil {
		h.fail(w, r, "Expense not found", &generic.NotFoundError{Kind: "expense", ID: id})
		return
	}
	if err := h.ensureWeekOpen(ctx, string(x.UserID), x.Date); err != nil {
		h.fail(w, r, "Week is locked", err)
		return
	}

	if err := h.Store.DeleteExpense(ctx, id); err != nil {
		h.fail(w, r, "Failed to delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

// ensureWeekOpen returns ErrLocked when day's week has a submitted or
// approved timesheet.
func (h *Handler) ensureWeekOpen(ctx context.Context, userID string, day time.Time) error {
	ts, err := h.Store.GetTimesheetForWeek(ctx, userID, generic.StartOfWeek(day))
	if err != nil {
		return err
	}
	if ts != nil && ts.Locked() {
		return fmt.Errorf("%w: timesheet for week of %s is %s",
			generic.ErrLocked, generic.FormatDate(ts.WeekStart), ts.Status)
	}
	return nil
}

// queryRange reads ?from=&to=. Missing bounds default to the current week.
func (h *Handler) queryRange(r *http.Request) (generic.DateRange, error) {
	week := generic.WeekOf(h.now())
	from, to := week.Start, week.End

	if s := r.URL.Query().Get("from"); s != "" {
		d, err := generic.ParseDate(s, time.UTC)
		if err != nil {
			return generic.DateRange{}, err
		}
		from = d
	}
	if s := r.URL.Query().Get("to"); s != "" {
		d, err := generic.ParseDate(s, time.UTC)
		if err != nil {
			return generic.DateRange{}, err
		}
		to = d
	}
	return generic.NewDateRange(from, to)
}
