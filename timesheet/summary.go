package timesheet

import (
	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/expense"
	"github.com/warp/timesheet-engine/generic"
)

// Totals is what a timesheet reports for its week.
type Totals struct {
	Hours     decimal.Decimal
	Allowance decimal.Decimal
	Expenses  decimal.Decimal // gross, base currency
	Entries   int
}

// Summarize adds up the entries and expenses that fall inside week.
// Records outside the week are ignored.
func Summarize(week generic.DateRange, entries []DayEntry, expenses []expense.Expense) Totals {
	t := Totals{Hours: decimal.Zero, Allowance: decimal.Zero, Expenses: decimal.Zero}
	for _, e := range entries {
		if !week.Contains(e.Date) {
			continue
		}
		t.Hours = t.Hours.Add(e.Hours)
		t.Allowance = t.Allowance.Add(e.Allowance)
		t.Entries++
	}
	for _, x := range expenses {
		if !week.Contains(x.Date) {
			continue
		}
		t.Expenses = t.Expenses.Add(x.GrossBase)
	}
	t.Hours = generic.RoundMoney(t.Hours)
	t.Allowance = generic.RoundMoney(t.Allowance)
	t.Expenses = generic.RoundMoney(t.Expenses)
	return t
}
