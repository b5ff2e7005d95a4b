package expense

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/generic"
)

// Category groups expenses for reporting.
type Category string

const (
	CategoryTravel    Category = "travel"
	CategoryLodging   Category = "lodging"
	CategoryMeals     Category = "meals"
	CategoryTransport Category = "transport"
	CategoryOther     Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTravel, CategoryLodging, CategoryMeals, CategoryTransport, CategoryOther:
		return true
	}
	return false
}

// Expense is a business expense booked by a consultant.
type Expense struct {
	ID          string
	UserID      generic.UserID
	ProjectID   generic.ProjectID // optional
	Date        time.Time
	Description string
	Category    Category
	Gross       decimal.Decimal // VAT-inclusive, in Currency
	Currency    string
	VATCode     string
	Net         decimal.Decimal // filled by Price
	VAT         decimal.Decimal // filled by Price
	GrossBase   decimal.Decimal // Gross converted to the base currency
	CreatedAt   time.Time
}

// Validate checks the fields a caller must supply.
func (e Expense) Validate() error {
	if e.UserID == "" {
		return generic.Invalid("user_id", "is required")
	}
	if e.Date.IsZero() {
		return generic.Invalid("date", "is required")
	}
	if strings.TrimSpace(e.Description) == "" {
		return generic.Invalid("description", "is required")
	}
	if !e.Category.Valid() {
		return generic.Invalid("category", "unknown category %q", e.Category)
	}
	if !e.Gross.IsPositive() {
		return generic.Invalid("gross", "must be positive")
	}
	if e.Currency == "" {
		return generic.Invalid("currency", "is required")
	}
	return nil
}

// Price fills Net, VAT and GrossBase from the expense's VAT rate and
// currency. GrossBase is the gross amount converted into base.
func (e Expense) Price(rate VATRate, cur, base Currency) (Expense, error) {
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	b, err := SplitGross(e.Gross, rate)
	if err != nil {
		return Expense{}, err
	}
	grossBase, err := Convert(b.Gross, cur, base)
	if err != nil {
		return Expense{}, err
	}
	e.Gross = b.Gross
	e.Net = b.Net
	e.VAT = b.VAT
	e.VATCode = rate.Code
	e.Currency = cur.Code
	e.GrossBase = grossBase
	return e, nil
}
