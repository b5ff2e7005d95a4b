package allowance

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInterval is returned when the trip does not start strictly before it ends.
	ErrInvalidInterval = errors.New("invalid interval: start must be before end")

	// ErrInvalidRate is returned when a supplied rate is negative.
	ErrInvalidRate = errors.New("invalid rate: must not be negative")
)

// IntervalError carries the rejected trip bounds.
type IntervalError struct {
	Start time.Time
	End   time.Time
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("invalid interval: start %s is not before end %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *IntervalError) Unwrap() error {
	return ErrInvalidInterval
}

// RateError carries the rejected rate.
type RateError struct {
	Name  string // "partial" or "full"
	Value decimal.Decimal
}

func (e *RateError) Error() string {
	return fmt.Sprintf("invalid rate: %s rate %s is negative", e.Name, e.Value)
}

func (e *RateError) Unwrap() error {
	return ErrInvalidRate
}

// IsInputError reports whether err is one of the calculator's caller errors.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInterval) || errors.Is(err, ErrInvalidRate)
}
