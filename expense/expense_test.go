package expense_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/expense"
	"github.com/warp/timesheet-engine/generic"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	standard = expense.VATRate{Code: "STD", Label: "Standard", Percent: dec("19")}
	reduced  = expense.VATRate{Code: "RED", Label: "Reduced", Percent: dec("7")}
	eur      = expense.Currency{Code: "EUR", Name: "Euro", RateToBase: dec("1")}
	chf      = expense.Currency{Code: "CHF", Name: "Swiss franc", RateToBase: dec("1.05")}
)

// =============================================================================
// VAT
// =============================================================================

func TestSplitGross(t *testing.T) {
	cases := []struct {
		gross    string
		rate     expense.VATRate
		net, vat string
	}{
		{"119", standard, "100", "19"},
		{"10", standard, "8.40", "1.60"},
		{"107", reduced, "100", "7"},
		{"0", standard, "0", "0"},
		{"12.345", reduced, "11.54", "0.81"},
	}
	for _, tc := range cases {
		t.Run(tc.gross+"@"+tc.rate.Code, func(t *testing.T) {
			b, err := expense.SplitGross(dec(tc.gross), tc.rate)
			require.NoError(t, err)
			assert.True(t, dec(tc.net).Equal(b.Net), "net %s", b.Net)
			assert.True(t, dec(tc.vat).Equal(b.VAT), "vat %s", b.VAT)
			assert.True(t, b.Net.Add(b.VAT).Equal(b.Gross), "parts add up")
		})
	}
}

func TestFromNet(t *testing.T) {
	b, err := expense.FromNet(dec("100"), standard)
	require.NoError(t, err)
	assert.Equal(t, "net 100.00 + vat 19.00 = 119.00", b.String())
}

func TestVAT_RejectsBadInput(t *testing.T) {
	_, err := expense.SplitGross(dec("-1"), standard)
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = expense.FromNet(dec("10"), expense.VATRate{Code: "X", Percent: dec("101")})
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = expense.SplitGross(dec("10"), expense.VATRate{Percent: dec("5")})
	var fe *generic.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "code", fe.Field)
}

// =============================================================================
// CURRENCIES
// =============================================================================

func TestConvert(t *testing.T) {
	got, err := expense.Convert(dec("100"), chf, eur)
	require.NoError(t, err)
	assert.True(t, dec("105").Equal(got))

	got, err = expense.Convert(dec("105"), eur, chf)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(got))

	got, err = expense.Convert(dec("9.999"), eur, eur)
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(got))
}

func TestCurrency_Validate(t *testing.T) {
	assert.NoError(t, eur.Validate())
	assert.ErrorIs(t, expense.Currency{Code: "eur", RateToBase: dec("1")}.Validate(), generic.ErrValidation)
	assert.ErrorIs(t, expense.Currency{Code: "USD"}.Validate(), generic.ErrValidation)

	_, err := expense.Convert(dec("1"), eur, expense.Currency{Code: "USD"})
	assert.ErrorIs(t, err, generic.ErrValidation)
}

// =============================================================================
// EXPENSES
// =============================================================================

func validExpense() expense.Expense {
	return expense.Expense{
		UserID:      "u-1",
		Date:        time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Description: "Hotel Zurich",
		Category:    expense.CategoryLodging,
		Gross:       dec("210"),
		Currency:    "CHF",
	}
}

func TestExpense_Price(t *testing.T) {
	priced, err := validExpense().Price(expense.VATRate{Code: "CH", Percent: dec("5")}, chf, eur)
	require.NoError(t, err)

	assert.True(t, dec("200").Equal(priced.Net))
	assert.True(t, dec("10").Equal(priced.VAT))
	assert.True(t, dec("220.50").Equal(priced.GrossBase))
	assert.Equal(t, "CH", priced.VATCode)

	// Booked in the base currency itself: no conversion
	same, err := validExpense().Price(expense.VATRate{Code: "CH", Percent: dec("5")}, chf, chf)
	require.NoError(t, err)
	assert.True(t, dec("210").Equal(same.GrossBase))

	_, err = validExpense().Price(expense.VATRate{Code: "CH", Percent: dec("5")}, expense.Currency{Code: "CHF"}, eur)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestExpense_Validate(t *testing.T) {
	cases := map[string]func(e *expense.Expense){
		"user_id":     func(e *expense.Expense) { e.UserID = "" },
		"date":        func(e *expense.Expense) { e.Date = time.Time{} },
		"description": func(e *expense.Expense) { e.Description = "  " },
		"category":    func(e *expense.Expense) { e.Category = "fun" },
		"gross":       func(e *expense.Expense) { e.Gross = decimal.Zero },
		"currency":    func(e *expense.Expense) { e.Currency = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			e := validExpense()
			mutate(&e)
			var fe *generic.FieldError
			require.ErrorAs(t, e.Validate(), &fe)
			assert.Equal(t, field, fe.Field)
		})
	}
	assert.NoError(t, validExpense().Validate())
}
