package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/timesheet-engine/expense"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// DAY ENTRY STORE
// =============================================================================

const dayEntryColumns = `id, user_id, project_id, date, hours, notes,
	trip_start, trip_end, trip_country, allowance, created_at`

// SaveDayEntry inserts a day entry. Entries are immutable; corrections are a
// delete plus a new entry.
func (s *Store) SaveDayEntry(ctx context.Context, e timesheet.DayEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tripStart, tripEnd, tripCountry sql.NullString
	if e.Trip != nil {
		tripStart = sql.NullString{String: formatTime(e.Trip.Start), Valid: true}
		tripEnd = sql.NullString{String: formatTime(e.Trip.End), Valid: true}
		tripCountry = sql.NullString{String: e.Trip.CountryCode, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO day_entries ("+dayEntryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, string(e.UserID), string(e.ProjectID), formatDate(e.Date), e.Hours.String(),
		nullString(e.Notes), tripStart, tripEnd, tripCountry, e.Allowance.String(), createdString(e.CreatedAt),
	)
	return wrapWriteError("save day entry", err)
}

// GetDayEntry retrieves an entry by ID.
func (s *Store) GetDayEntry(ctx context.Context, id string) (*timesheet.DayEntry, error) {
	entries, err := s.queryDayEntries(ctx, "SELECT "+dayEntryColumns+" FROM day_entries WHERE id = ?", id)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// ListDayEntries returns a user's entries within r, ordered by date.
func (s *Store) ListDayEntries(ctx context.Context, userID string, r generic.DateRange) ([]timesheet.DayEntry, error) {
	return s.queryDayEntries(ctx,
		"SELECT "+dayEntryColumns+" FROM day_entries WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date, created_at",
		userID, formatDate(r.Start), formatDate(r.End),
	)
}

func (s *Store) queryDayEntries(ctx context.Context, query string, args ...any) ([]timesheet.DayEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []timesheet.DayEntry
	for rows.Next() {
		var e timesheet.DayEntry
		var userID, projectID, date, hours, allowance, createdAt string
		var notes, tripStart, tripEnd, tripCountry sql.NullString
		if err := rows.Scan(&e.ID, &userID, &projectID, &date, &hours, &notes,
			&tripStart, &tripEnd, &tripCountry, &allowance, &createdAt); err != nil {
			return nil, err
		}
		e.UserID = generic.UserID(userID)
		e.ProjectID = generic.ProjectID(projectID)
		e.Date = parseDate(date)
		e.Hours = parseDecimal(hours)
		e.Notes = notes.String
		e.Allowance = parseDecimal(allowance)
		e.CreatedAt = parseTime(createdAt)
		if tripStart.Valid && tripEnd.Valid {
			e.Trip = &timesheet.Trip{
				Start:       parseTime(tripStart.String),
				End:         parseTime(tripEnd.String),
				CountryCode: tripCountry.String,
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteDayEntry removes an entry.
func (s *Store) DeleteDayEntry(ctx context.Context, id string) error {
	return s.deleteByKey(ctx, "day_entries", "id", "day entry", id)
}

// =============================================================================
// EXPENSE STORE
// =============================================================================

const expenseColumns = `id, user_id, project_id, date, description, category,
	gross, currency, vat_code, net, vat, gross_base, created_at`

// SaveExpense inserts a priced expense.
func (s *Store) SaveExpense(ctx context.Context, e expense.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, string(e.UserID), nullString(string(e.ProjectID)), formatDate(e.Date), e.Description,
		string(e.Category), e.Gross.String(), e.Currency, e.VATCode,
		e.Net.String(), e.VAT.String(), e.GrossBase.String(), createdString(e.CreatedAt),
	)
	return wrapWriteError("save expense", err)
}

// GetExpense retrieves an expense by ID.
func (s *Store) GetExpense(ctx context.Context, id string) (*expense.Expense, error) {
	out, err := s.queryExpenses(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

// ListExpenses returns a user's expenses within r, ordered by date.
func (s *Store) ListExpenses(ctx context.Context, userID string, r generic.DateRange) ([]expense.Expense, error) {
	return s.queryExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date, created_at",
		userID, formatDate(r.Start), formatDate(r.End),
	)
}

func (s *Store) queryExpenses(ctx context.Context, query string, args ...any) ([]expense.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []expense.Expense
	for rows.Next() {
		var e expense.Expense
		var userID, date, category, gross, net, vat, grossBase, createdAt string
		var projectID sql.NullString
		if err := rows.Scan(&e.ID, &userID, &projectID, &date, &e.Description, &category,
			&gross, &e.Currency, &e.VATCode, &net, &vat, &grossBase, &createdAt); err != nil {
			return nil, err
		}
		e.UserID = generic.UserID(userID)
		e.ProjectID = generic.ProjectID(projectID.String)
		e.Date = parseDate(date)
		e.Category = expense.Category(category)
		e.Gross = parseDecimal(gross)
		e.Net = parseDecimal(net)
		e.VAT = parseDecimal(vat)
		e.GrossBase = parseDecimal(grossBase)
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteExpense removes an expense.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.deleteByKey(ctx, "expenses", "id", "expense", id)
}

// =============================================================================
// TIMESHEET STORE
// =============================================================================

const timesheetColumns = `id, user_id, week_start, status, total_hours, total_allowance,
	total_expenses, entry_count, submitted_at, decided_at, decided_by, rejection_reason,
	created_at, updated_at`

// SaveTimesheet inserts or updates a timesheet. The (user, week) pair is unique.
func (s *Store) SaveTimesheet(ctx context.Context, t timesheet.Timesheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO timesheets (` + timesheetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			total_hours = excluded.total_hours,
			total_allowance = excluded.total_allowance,
			total_expenses = excluded.total_expenses,
			entry_count = excluded.entry_count,
			submitted_at = excluded.submitted_at,
			decided_at = excluded.decided_at,
			decided_by = excluded.decided_by,
			rejection_reason = excluded.rejection_reason,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	createdAt, updatedAt := t.CreatedAt, t.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}
	_, err := s.db.ExecContext(ctx, query,
		t.ID, string(t.UserID), formatDate(t.WeekStart), string(t.Status),
		t.Totals.Hours.String(), t.Totals.Allowance.String(), t.Totals.Expenses.String(), t.Totals.Entries,
		nullTime(t.SubmittedAt), nullTime(t.DecidedAt), nullString(string(t.DecidedBy)),
		nullString(t.RejectionReason), formatTime(createdAt), formatTime(updatedAt),
	)
	return wrapWriteError("save timesheet", err)
}

// GetTimesheet retrieves a timesheet by ID.
func (s *Store) GetTimesheet(ctx context.Context, id string) (*timesheet.Timesheet, error) {
	out, err := s.queryTimesheets(ctx, "SELECT "+timesheetColumns+" FROM timesheets WHERE id = ?", id)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

// GetTimesheetForWeek returns the user's timesheet for the week starting weekStart.
func (s *Store) GetTimesheetForWeek(ctx context.Context, userID string, weekStart time.Time) (*timesheet.Timesheet, error) {
	out, err := s.queryTimesheets(ctx,
		"SELECT "+timesheetColumns+" FROM timesheets WHERE user_id = ? AND week_start = ?",
		userID, formatDate(weekStart),
	)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

// ListTimesheetsByUser returns a user's timesheets, newest week first.
func (s *Store) ListTimesheetsByUser(ctx context.Context, userID string) ([]timesheet.Timesheet, error) {
	return s.queryTimesheets(ctx,
		"SELECT "+timesheetColumns+" FROM timesheets WHERE user_id = ? ORDER BY week_start DESC", userID)
}

// ListTimesheetsByStatus returns all timesheets in status, oldest week first.
func (s *Store) ListTimesheetsByStatus(ctx context.Context, status timesheet.Status) ([]timesheet.Timesheet, error) {
	return s.queryTimesheets(ctx,
		"SELECT "+timesheetColumns+" FROM timesheets WHERE status = ? ORDER BY week_start, user_id", string(status))
}

func (s *Store) queryTimesheets(ctx context.Context, query string, args ...any) ([]timesheet.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []timesheet.Timesheet
	for rows.Next() {
		var t timesheet.Timesheet
		var userID, weekStart, status, hours, allowance, expenses, createdAt, updatedAt string
		var submittedAt, decidedAt, decidedBy, reason sql.NullString
		if err := rows.Scan(&t.ID, &userID, &weekStart, &status, &hours, &allowance, &expenses,
			&t.Totals.Entries, &submittedAt, &decidedAt, &decidedBy, &reason, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		t.UserID = generic.UserID(userID)
		t.WeekStart = parseDate(weekStart)
		t.Status = timesheet.Status(status)
		t.Totals.Hours = parseDecimal(hours)
		t.Totals.Allowance = parseDecimal(allowance)
		t.Totals.Expenses = parseDecimal(expenses)
		t.SubmittedAt = nullTimeValue(submittedAt)
		t.DecidedAt = nullTimeValue(decidedAt)
		t.DecidedBy = generic.UserID(decidedBy.String)
		t.RejectionReason = reason.String
		t.CreatedAt = parseTime(createdAt)
		t.UpdatedAt = parseTime(updatedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}
