package expense

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// CURRENCIES
// =============================================================================

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Currency is a configured currency with its exchange rate to the base
// currency: 1 unit of this currency is worth RateToBase base units.
type Currency struct {
	Code       string
	Name       string
	RateToBase decimal.Decimal
}

// Validate checks the ISO-4217 shape of the code and a positive rate.
func (c Currency) Validate() error {
	if !currencyCode.MatchString(c.Code) {
		return generic.Invalid("code", "must be three upper-case letters, got %q", c.Code)
	}
	if !c.RateToBase.IsPositive() {
		return generic.Invalid("rate_to_base", "must be positive")
	}
	return nil
}

// Convert converts amount between two configured currencies via the base
// currency. Same currency is returned rounded but otherwise untouched.
func Convert(amount decimal.Decimal, from, to Currency) (decimal.Decimal, error) {
	if err := from.Validate(); err != nil {
		return decimal.Zero, fmt.Errorf("from: %w", err)
	}
	if err := to.Validate(); err != nil {
		return decimal.Zero, fmt.Errorf("to: %w", err)
	}
	if from.Code == to.Code {
		return generic.RoundMoney(amount), nil
	}
	return generic.RoundMoney(amount.Mul(from.RateToBase).Div(to.RateToBase)), nil
}
