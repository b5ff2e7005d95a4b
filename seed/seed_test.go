package seed_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/allowance"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/seed"
	"github.com/warp/timesheet-engine/store/sqlite"
)

func TestDefault_IsValid(t *testing.T) {
	doc := seed.Default()

	vats, currencies, countries, err := doc.Build()
	require.NoError(t, err)
	assert.NotEmpty(t, vats)
	assert.NotEmpty(t, currencies)
	assert.NotEmpty(t, countries)

	for _, c := range countries {
		assert.True(t, c.Rates.Full.GreaterThanOrEqual(c.Rates.Partial), "%s: full rate below partial", c.Code)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := seed.Load(strings.NewReader("vat_ratez: []\n"))
	assert.Error(t, err)
}

func TestLoad_EmptyDocument(t *testing.T) {
	doc, err := seed.Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Countries)
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		is   error
	}{
		{"bad percent", "vat_rates:\n  - {code: X, percent: abc}\n", generic.ErrValidation},
		{"percent above 100", "vat_rates:\n  - {code: X, percent: \"120\"}\n", generic.ErrValidation},
		{"lowercase currency", "currencies:\n  - {code: eur, rate_to_base: \"1\"}\n", generic.ErrValidation},
		{"long country code", "countries:\n  - {code: DEU, partial_rate: \"1\", full_rate: \"2\"}\n", generic.ErrValidation},
		{"negative rate", "countries:\n  - {code: DE, partial_rate: \"-1\", full_rate: \"2\"}\n", allowance.ErrInvalidRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := seed.Load(strings.NewReader(tt.yaml))
			require.NoError(t, err)
			_, _, _, err = doc.Build()
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestApply_WritesAndIsRepeatable(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	doc, err := seed.Load(strings.NewReader(`
vat_rates:
  - {code: STD, label: Standard, percent: "19"}
currencies:
  - {code: EUR, name: Euro, rate_to_base: "1"}
countries:
  - {code: de, name: Germany, partial_rate: "14", full_rate: "28"}
`))
	require.NoError(t, err)

	res, err := seed.Apply(ctx, store, doc)
	require.NoError(t, err)
	assert.Equal(t, seed.Result{VATRates: 1, Currencies: 1, Countries: 1}, res)

	_, err = seed.Apply(ctx, store, doc)
	require.NoError(t, err)

	de, err := store.GetCountryRate(ctx, "DE")
	require.NoError(t, err)
	require.NotNil(t, de, "country codes are upper-cased")
	assert.True(t, decimal.NewFromInt(28).Equal(de.Rates.Full))

	countries, err := store.ListCountryRates(ctx)
	require.NoError(t, err)
	assert.Len(t, countries, 1)
}

func TestApply_NothingWrittenOnInvalidDocument(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	doc := seed.Document{
		VATRates:  []seed.VATRate{{Code: "STD", Percent: "19"}},
		Countries: []seed.CountryRate{{Code: "DE", PartialRate: "x", FullRate: "28"}},
	}
	_, err = seed.Apply(ctx, store, doc)
	require.Error(t, err)

	vats, err := store.ListVATRates(ctx)
	require.NoError(t, err)
	assert.Empty(t, vats)
}
