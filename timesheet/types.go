// Package timesheet implements day entries and the weekly timesheet
// approval workflow. Travel days carry a Trip whose allowance is computed by
// the allowance package and stored on the entry.
package timesheet

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/allowance"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// DAY ENTRIES
// =============================================================================

var maxDayHours = decimal.NewFromInt(24)

// Trip is the travel part of a day entry.
type Trip struct {
	Start       time.Time
	End         time.Time
	CountryCode string
}

// Validate checks the trip interval and destination. The interval rule is the
// calculator's own, so the error is allowance.ErrInvalidInterval.
func (t Trip) Validate() error {
	if !t.Start.Before(t.End) {
		return &allowance.IntervalError{Start: t.Start, End: t.End}
	}
	if len(strings.TrimSpace(t.CountryCode)) != 2 {
		return generic.Invalid("country_code", "must be a two-letter country code")
	}
	return nil
}

// DayEntry is the work logged by a consultant for one project on one day.
type DayEntry struct {
	ID        string
	UserID    generic.UserID
	ProjectID generic.ProjectID
	Date      time.Time // midnight
	Hours     decimal.Decimal
	Notes     string
	Trip      *Trip
	Allowance decimal.Decimal // computed total for Trip, zero without one
	CreatedAt time.Time
}

// Validate checks the fields a caller must supply.
func (e DayEntry) Validate() error {
	if e.UserID == "" {
		return generic.Invalid("user_id", "is required")
	}
	if e.ProjectID == "" {
		return generic.Invalid("project_id", "is required")
	}
	if e.Date.IsZero() {
		return generic.Invalid("date", "is required")
	}
	if !e.Hours.IsPositive() || e.Hours.GreaterThan(maxDayHours) {
		return generic.Invalid("hours", "must be greater than 0 and at most 24, got %s", e.Hours)
	}
	if e.Trip != nil {
		return e.Trip.Validate()
	}
	return nil
}

// PriceTrip computes the allowance for the entry's trip with the destination's
// rates and returns the entry with Allowance set. Entries without a trip are
// returned unchanged.
func (e DayEntry) PriceTrip(rates allowance.Rates) (DayEntry, allowance.Result, error) {
	if e.Trip == nil {
		return e, allowance.Result{}, nil
	}
	res, err := allowance.Compute(e.Trip.Start, e.Trip.End, rates)
	if err != nil {
		return DayEntry{}, allowance.Result{}, err
	}
	e.Allowance = res.Total
	return e, res, nil
}

// =============================================================================
// TIMESHEETS
// =============================================================================

// Status is the approval state of a weekly timesheet.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Timesheet is a consultant's week, Monday to Sunday.
type Timesheet struct {
	ID              string
	UserID          generic.UserID
	WeekStart       time.Time // Monday midnight
	Status          Status
	Totals          Totals
	SubmittedAt     *time.Time
	DecidedAt       *time.Time
	DecidedBy       generic.UserID
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewTimesheet starts a draft for the week containing day.
func NewTimesheet(user generic.UserID, day time.Time) Timesheet {
	return Timesheet{
		ID:        generic.NewID(),
		UserID:    user,
		WeekStart: generic.StartOfWeek(day),
		Status:    StatusDraft,
	}
}

// Week returns the Monday-Sunday range the timesheet covers.
func (t Timesheet) Week() generic.DateRange {
	return generic.WeekOf(t.WeekStart)
}

// Locked reports whether entries in this week may no longer change.
func (t Timesheet) Locked() bool {
	return t.Status == StatusApproved || t.Status == StatusSubmitted
}
