// Package allowance computes per-diem travel allowances.
// Given a trip's start and end and a destination's partial/full day rates,
// it apportions the allowance across the calendar days the trip touches.
package allowance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY CLASSIFICATION
// =============================================================================

// Kind classifies a calendar day of a trip. The set is closed: every switch
// over Kind handles exactly SameDay, FirstDay, FullDay and LastDay.
type Kind int

const (
	SameDay Kind = iota + 1
	FirstDay
	FullDay
	LastDay
)

var kindNames = map[Kind]string{
	SameDay:  "same_day",
	FirstDay: "first_day",
	FullDay:  "full_day",
	LastDay:  "last_day",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// HourGated reports whether the day only pays when the 8-hour threshold is met.
// Intermediate full days always pay the full rate.
func (k Kind) HourGated() bool {
	return k != FullDay
}

func (k Kind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown day kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown day kind %q", string(b))
}

// =============================================================================
// RATES AND RESULTS
// =============================================================================

// Rates are the allowance rates of a destination country.
type Rates struct {
	Partial decimal.Decimal // day away >= 8h, less than a full day
	Full    decimal.Decimal // complete calendar day away
}

// NewRates is a convenience for fixtures and tests.
func NewRates(partial, full float64) Rates {
	return Rates{Partial: decimal.NewFromFloat(partial), Full: decimal.NewFromFloat(full)}
}

// Validate rejects negative rates, partial first.
func (r Rates) Validate() error {
	if r.Partial.IsNegative() {
		return &RateError{Name: "partial", Value: r.Partial}
	}
	if r.Full.IsNegative() {
		return &RateError{Name: "full", Value: r.Full}
	}
	return nil
}

// DayAllowance is the allowance earned on one calendar day.
type DayAllowance struct {
	Day          time.Time       // midnight of the day, in the trip's location
	Kind         Kind
	HoursPresent decimal.Decimal // rounded to 2 decimals, presentation only
	RateApplied  decimal.Decimal // zero when the threshold was missed
	Amount       decimal.Decimal // rounded to 2 decimals
	Description  string
}

// Result is the outcome of Compute.
type Result struct {
	Total     decimal.Decimal
	Breakdown []DayAllowance
}

// Days returns the number of calendar days in the breakdown.
func (r Result) Days() int { return len(r.Breakdown) }

// CountKind returns how many days of kind k the trip contains.
func (r Result) CountKind(k Kind) int {
	n := 0
	for _, d := range r.Breakdown {
		if d.Kind == k {
			n++
		}
	}
	return n
}
