/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

AMOUNTS:
  Requests accept decimals as JSON numbers or strings ("12.50"), so clients
  can avoid float rounding on the way in. Responses carry plain numbers
  already rounded to cents.

DATES:
  Dates are YYYY-MM-DD. Trip times are RFC3339 or "YYYY-MM-DDTHH:MM"; the
  latter is read in UTC.

VALIDATION:
  Validation is done in handlers and domain types, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/allowance"
	"github.com/warp/timesheet-engine/expense"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// ALLOWANCE
// =============================================================================

// CalculateAllowanceRequest asks for the allowance of one trip. Either
// CountryCode or both explicit rates must be given; explicit rates win.
type CalculateAllowanceRequest struct {
	Start       string           `json:"start"`
	End         string           `json:"end"`
	CountryCode string           `json:"country_code,omitempty"`
	PartialRate *decimal.Decimal `json:"partial_rate,omitempty"`
	FullRate    *decimal.Decimal `json:"full_rate,omitempty"`
}

// AllowanceResponse is the computed allowance with its per-day breakdown.
type AllowanceResponse struct {
	Allowance float64           `json:"allowance"`
	Days      int               `json:"days"`
	Breakdown []DayAllowanceDTO `json:"breakdown"`
	Rates     RatesDTO          `json:"rates"`
}

// DayAllowanceDTO is one calendar day of a trip.
type DayAllowanceDTO struct {
	Date         string         `json:"date"`
	Type         allowance.Kind `json:"type"`
	HoursPresent float64        `json:"hours_present"`
	RateApplied  float64        `json:"rate_applied"`
	Amount       float64        `json:"amount"`
	Description  string         `json:"description"`
}

// RatesDTO echoes the rates used for a calculation.
type RatesDTO struct {
	CountryCode string  `json:"country_code,omitempty"`
	Partial     float64 `json:"partial_rate"`
	Full        float64 `json:"full_rate"`
}

func toAllowanceResponse(res allowance.Result, rates allowance.Rates, country string) AllowanceResponse {
	return AllowanceResponse{
		Allowance: res.Total.InexactFloat64(),
		Days:      res.Days(),
		Breakdown: toDayAllowanceDTOs(res.Breakdown),
		Rates:     toRatesDTO(rates, country),
	}
}

func toDayAllowanceDTOs(days []allowance.DayAllowance) []DayAllowanceDTO {
	dtos := make([]DayAllowanceDTO, len(days))
	for i, d := range days {
		dtos[i] = DayAllowanceDTO{
			Date:         generic.FormatDate(d.Day),
			Type:         d.Kind,
			HoursPresent: d.HoursPresent.InexactFloat64(),
			RateApplied:  d.RateApplied.InexactFloat64(),
			Amount:       d.Amount.InexactFloat64(),
			Description:  d.Description,
		}
	}
	return dtos
}

func toRatesDTO(r allowance.Rates, country string) RatesDTO {
	return RatesDTO{CountryCode: country, Partial: r.Partial.InexactFloat64(), Full: r.Full.InexactFloat64()}
}

// =============================================================================
// USERS, PROJECTS, ALLOCATIONS
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SaveUserRequest creates or replaces a user. Active defaults to true.
type SaveUserRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active *bool  `json:"active"`
}

func toUserDTO(u sqlite.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: formatTimestamp(u.CreatedAt),
	}
}

// ProjectDTO represents a project in API responses.
type ProjectDTO struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Client    string `json:"client,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SaveProjectRequest creates or replaces a project. Active defaults to true.
type SaveProjectRequest struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Client string `json:"client"`
	Active *bool  `json:"active"`
}

func toProjectDTO(p sqlite.Project) ProjectDTO {
	return ProjectDTO{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		Client:    p.Client,
		Active:    p.Active,
		CreatedAt: formatTimestamp(p.CreatedAt),
	}
}

// AllocationDTO represents a user's share of a project.
type AllocationDTO struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	ProjectID     string  `json:"project_id"`
	Share         float64 `json:"share"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to,omitempty"`
}

// CreateAllocationRequest assigns a user to the project in the URL.
type CreateAllocationRequest struct {
	UserID        string          `json:"user_id"`
	Share         decimal.Decimal `json:"share"`
	EffectiveFrom string          `json:"effective_from"`
	EffectiveTo   string          `json:"effective_to,omitempty"`
}

func toAllocationDTO(a sqlite.Allocation) AllocationDTO {
	dto := AllocationDTO{
		ID:            a.ID,
		UserID:        a.UserID,
		ProjectID:     a.ProjectID,
		Share:         a.Share.InexactFloat64(),
		EffectiveFrom: generic.FormatDate(a.EffectiveFrom),
	}
	if a.EffectiveTo != nil {
		to := generic.FormatDate(*a.EffectiveTo)
		dto.EffectiveTo = &to
	}
	return dto
}

// =============================================================================
// SETTINGS
// =============================================================================

// CountryRateDTO is a destination's allowance configuration.
type CountryRateDTO struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	PartialRate float64 `json:"partial_rate"`
	FullRate    float64 `json:"full_rate"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

// SaveCountryRateRequest replaces the rates of the country in the URL.
type SaveCountryRateRequest struct {
	Name        string          `json:"name"`
	PartialRate decimal.Decimal `json:"partial_rate"`
	FullRate    decimal.Decimal `json:"full_rate"`
}

func toCountryRateDTO(c sqlite.CountryRate) CountryRateDTO {
	return CountryRateDTO{
		Code:        c.Code,
		Name:        c.Name,
		PartialRate: c.Rates.Partial.InexactFloat64(),
		FullRate:    c.Rates.Full.InexactFloat64(),
		UpdatedAt:   formatTimestamp(c.UpdatedAt),
	}
}

// VATRateDTO is a configured VAT rate.
type VATRateDTO struct {
	Code    string  `json:"code"`
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// SaveVATRateRequest replaces the VAT rate in the URL.
type SaveVATRateRequest struct {
	Label   string          `json:"label"`
	Percent decimal.Decimal `json:"percent"`
}

func toVATRateDTO(r expense.VATRate) VATRateDTO {
	return VATRateDTO{Code: r.Code, Label: r.Label, Percent: r.Percent.InexactFloat64()}
}

// CurrencyDTO is a configured currency.
type CurrencyDTO struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	RateToBase float64 `json:"rate_to_base"`
}

// SaveCurrencyRequest replaces the currency in the URL.
type SaveCurrencyRequest struct {
	Name       string          `json:"name"`
	RateToBase decimal.Decimal `json:"rate_to_base"`
}

func toCurrencyDTO(c expense.Currency) CurrencyDTO {
	return CurrencyDTO{Code: c.Code, Name: c.Name, RateToBase: c.RateToBase.InexactFloat64()}
}

// =============================================================================
// DAY ENTRIES AND EXPENSES
// =============================================================================

// TripRequest is the travel part of a new day entry.
type TripRequest struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	CountryCode string `json:"country_code"`
}

// CreateEntryRequest logs work for the user in the URL.
type CreateEntryRequest struct {
	ProjectID string          `json:"project_id"`
	Date      string          `json:"date"`
	Hours     decimal.Decimal `json:"hours"`
	Notes     string          `json:"notes,omitempty"`
	Trip      *TripRequest    `json:"trip,omitempty"`
}

// TripDTO is the travel part of a day entry.
type TripDTO struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	CountryCode string `json:"country_code"`
}

// EntryDTO represents a day entry. Breakdown is only filled when the entry
// was just created with a trip.
type EntryDTO struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	ProjectID string            `json:"project_id"`
	Date      string            `json:"date"`
	Hours     float64           `json:"hours"`
	Notes     string            `json:"notes,omitempty"`
	Trip      *TripDTO          `json:"trip,omitempty"`
	Allowance float64           `json:"allowance"`
	Breakdown []DayAllowanceDTO `json:"breakdown,omitempty"`
	CreatedAt string            `json:"created_at,omitempty"`
}

func toEntryDTO(e timesheet.DayEntry) EntryDTO {
	dto := EntryDTO{
		ID:        e.ID,
		UserID:    string(e.UserID),
		ProjectID: string(e.ProjectID),
		Date:      generic.FormatDate(e.Date),
		Hours:     e.Hours.InexactFloat64(),
		Notes:     e.Notes,
		Allowance: e.Allowance.InexactFloat64(),
		CreatedAt: formatTimestamp(e.CreatedAt),
	}
	if e.Trip != nil {
		dto.Trip = &TripDTO{
			Start:       e.Trip.Start.Format(time.RFC3339),
			End:         e.Trip.End.Format(time.RFC3339),
			CountryCode: e.Trip.CountryCode,
		}
	}
	return dto
}

// CreateExpenseRequest books an expense for the user in the URL.
// Currency defaults to the base currency.
type CreateExpenseRequest struct {
	ProjectID   string          `json:"project_id,omitempty"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Gross       decimal.Decimal `json:"gross"`
	Currency    string          `json:"currency,omitempty"`
	VATCode     string          `json:"vat_code"`
}

// ExpenseDTO represents a priced expense.
type ExpenseDTO struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	ProjectID   string  `json:"project_id,omitempty"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Gross       float64 `json:"gross"`
	Currency    string  `json:"currency"`
	VATCode     string  `json:"vat_code"`
	Net         float64 `json:"net"`
	VAT         float64 `json:"vat"`
	GrossBase   float64 `json:"gross_base"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

func toExpenseDTO(e expense.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          e.ID,
		UserID:      string(e.UserID),
		ProjectID:   string(e.ProjectID),
		Date:        generic.FormatDate(e.Date),
		Description: e.Description,
		Category:    string(e.Category),
		Gross:       e.Gross.InexactFloat64(),
		Currency:    e.Currency,
		VATCode:     e.VATCode,
		Net:         e.Net.InexactFloat64(),
		VAT:         e.VAT.InexactFloat64(),
		GrossBase:   e.GrossBase.InexactFloat64(),
		CreatedAt:   formatTimestamp(e.CreatedAt),
	}
}

// =============================================================================
// TIMESHEETS
// =============================================================================

// TimesheetDTO represents a weekly timesheet.
type TimesheetDTO struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	WeekStart       string  `json:"week_start"`
	WeekEnd         string  `json:"week_end"`
	Status          string  `json:"status"`
	TotalHours      float64 `json:"total_hours"`
	TotalAllowance  float64 `json:"total_allowance"`
	TotalExpenses   float64 `json:"total_expenses"`
	Entries         int     `json:"entries"`
	SubmittedAt     *string `json:"submitted_at,omitempty"`
	DecidedAt       *string `json:"decided_at,omitempty"`
	DecidedBy       string  `json:"decided_by,omitempty"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
}

// DecisionRequest is the body of approve and reject calls.
type DecisionRequest struct {
	ApproverID string `json:"approver_id"`
	Reason     string `json:"reason,omitempty"`
}

func toTimesheetDTO(t timesheet.Timesheet) TimesheetDTO {
	week := t.Week()
	return TimesheetDTO{
		ID:              t.ID,
		UserID:          string(t.UserID),
		WeekStart:       generic.FormatDate(week.Start),
		WeekEnd:         generic.FormatDate(week.End),
		Status:          string(t.Status),
		TotalHours:      t.Totals.Hours.InexactFloat64(),
		TotalAllowance:  t.Totals.Allowance.InexactFloat64(),
		TotalExpenses:   t.Totals.Expenses.InexactFloat64(),
		Entries:         t.Totals.Entries,
		SubmittedAt:     timestampPtr(t.SubmittedAt),
		DecidedAt:       timestampPtr(t.DecidedAt),
		DecidedBy:       string(t.DecidedBy),
		RejectionReason: t.RejectionReason,
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func timestampPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
