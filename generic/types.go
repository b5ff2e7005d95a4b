/*
Package generic provides the primitives shared by every domain package.

PURPOSE:
  Calendar-day arithmetic, inclusive date ranges, decimal money helpers,
  typed identifiers and the error taxonomy. The allowance, expense and
  timesheet packages build on these; none of them talk to the database.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal.Decimal rounded half-up to cents
  - Identifiers: UserID, ProjectID and friends, generated as UUIDv4

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing user/project IDs
  3. Immutability: Helpers return new values, inputs are never mutated

SEE ALSO:
  - time.go: Day boundary helpers
  - period.go: DateRange
  - errors.go: Sentinel errors
*/
package generic

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - decimal amounts rounded to cents
// =============================================================================

// MoneyPlaces is the number of decimals kept for amounts and presented hours.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half-up (away from zero) to two decimals.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ParseAmount parses a decimal string. Both "12.34" and "12,34" are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	return d, nil
}

// Percent returns pct% of d, unrounded.
func Percent(d, pct decimal.Decimal) decimal.Decimal {
	return d.Mul(pct).Div(hundred)
}

// SumMoney adds the amounts and rounds the result once.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	return RoundMoney(decimal.Sum(decimal.Zero, amounts...))
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type ProjectID string

// NewID returns a random UUIDv4 string.
func NewID() string {
	return uuid.NewString()
}
