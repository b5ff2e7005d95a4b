package allowance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/generic"
)

// Threshold is the minimum time away on a departure, return or same-day trip
// day for the partial rate to apply. Reaching it exactly is enough.
const Threshold = 8 * time.Hour

var (
	hourNanos       = decimal.NewFromInt(int64(time.Hour))
	fullDayHours    = decimal.NewFromInt(24)
	thresholdString = fmt.Sprintf("%.0fh", Threshold.Hours())
)

// Compute apportions the allowance for a trip from start to end.
//
// Calendar days are taken from start's location; end is read in the same
// location. A trip within one calendar date yields a single SameDay entry.
// Otherwise the departure day (FirstDay) and return day (LastDay) pay the
// partial rate when at least Threshold was spent away on them, and every day
// in between (FullDay) pays the full rate unconditionally.
//
// Compute is pure: it keeps no state and is safe for concurrent use.
func Compute(start, end time.Time, rates Rates) (Result, error) {
	if err := validate(start, end, rates); err != nil {
		return Result{}, err
	}
	end = end.In(start.Location())

	var days []DayAllowance
	if generic.SameDay(start, end) {
		days = []DayAllowance{dayAllowance(SameDay, start, end.Sub(start), rates)}
	} else {
		returnDay := generic.StartOfDay(end)
		days = make([]DayAllowance, 0, generic.CalendarDaysBetween(start, end)+1)

		next := generic.StartOfNextDay(start)
		days = append(days, dayAllowance(FirstDay, start, next.Sub(start), rates))
		for day := next; day.Before(returnDay); day = generic.AddDays(day, 1) {
			days = append(days, dayAllowance(FullDay, day, generic.AddDays(day, 1).Sub(day), rates))
		}
		days = append(days, dayAllowance(LastDay, returnDay, end.Sub(returnDay), rates))
	}

	amounts := make([]decimal.Decimal, len(days))
	for i, d := range days {
		amounts[i] = d.Amount
	}

	return Result{
		Total:     generic.SumMoney(amounts...),
		Breakdown: days,
	}, nil
}

func validate(start, end time.Time, rates Rates) error {
	if !start.Before(end) {
		return &IntervalError{Start: start, End: end}
	}
	return rates.Validate()
}

// dayAllowance prices one calendar day of the trip according to its kind.
func dayAllowance(kind Kind, at time.Time, away time.Duration, rates Rates) DayAllowance {
	if !kind.HourGated() {
		return fullDay(at, rates.Full)
	}
	return gatedDay(kind, at, away, rates.Partial)
}

// gatedDay builds a departure, return or same-day entry. The threshold is
// checked on the exact duration, never on the rounded hours.
func gatedDay(kind Kind, at time.Time, away time.Duration, partial decimal.Decimal) DayAllowance {
	hours := hoursOf(away)
	d := DayAllowance{
		Day:          generic.StartOfDay(at),
		Kind:         kind,
		HoursPresent: generic.RoundMoney(hours),
		RateApplied:  decimal.Zero,
		Amount:       decimal.Zero,
	}
	if away >= Threshold {
		d.RateApplied = partial
		d.Amount = generic.RoundMoney(partial)
		d.Description = fmt.Sprintf("%s: %sh away (>= %s), partial rate %s",
			label(kind), d.HoursPresent.StringFixed(2), thresholdString, d.Amount.StringFixed(2))
	} else {
		d.Description = fmt.Sprintf("%s: %sh away (< %s), no allowance",
			label(kind), d.HoursPresent.StringFixed(2), thresholdString)
	}
	return d
}

func fullDay(day time.Time, full decimal.Decimal) DayAllowance {
	amount := generic.RoundMoney(full)
	return DayAllowance{
		Day:          day,
		Kind:         FullDay,
		HoursPresent: fullDayHours,
		RateApplied:  full,
		Amount:       amount,
		Description:  fmt.Sprintf("%s: 24h away, full rate %s", label(FullDay), amount.StringFixed(2)),
	}
}

func hoursOf(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(hourNanos)
}

func label(k Kind) string {
	switch k {
	case SameDay:
		return "same-day trip"
	case FirstDay:
		return "departure day"
	case FullDay:
		return "full day"
	case LastDay:
		return "return day"
	}
	return k.String()
}
