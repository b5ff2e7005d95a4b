/*
seed.go - Default settings for a fresh installation

PURPOSE:
  Settings tables (VAT rates, currencies, country allowance rates) start
  empty. A seed document fills them from YAML, either the embedded defaults
  or a file named in the configuration.

FORMAT:
  vat_rates:  [{code, label, percent}]
  currencies: [{code, name, rate_to_base}]
  countries:  [{code, name, partial_rate, full_rate}]

  Amounts are strings so they parse exactly into decimals.

APPLYING:
  Apply validates the whole document before writing anything, then upserts
  every row. Running it twice is harmless.
*/
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/allowance"
	"github.com/warp/timesheet-engine/expense"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/sqlite"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML string

// Document is a parsed seed file.
type Document struct {
	VATRates   []VATRate     `yaml:"vat_rates"`
	Currencies []Currency    `yaml:"currencies"`
	Countries  []CountryRate `yaml:"countries"`
}

type VATRate struct {
	Code    string `yaml:"code"`
	Label   string `yaml:"label"`
	Percent string `yaml:"percent"`
}

type Currency struct {
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	RateToBase string `yaml:"rate_to_base"`
}

type CountryRate struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	PartialRate string `yaml:"partial_rate"`
	FullRate    string `yaml:"full_rate"`
}

// Settings is the part of the store a seed writes to.
type Settings interface {
	SaveVATRate(ctx context.Context, r expense.VATRate) error
	SaveCurrency(ctx context.Context, c expense.Currency) error
	SaveCountryRate(ctx context.Context, c sqlite.CountryRate) error
}

// Result counts what Apply wrote.
type Result struct {
	VATRates   int `json:"vat_rates"`
	Currencies int `json:"currencies"`
	Countries  int `json:"countries"`
}

// =============================================================================
// LOADING
// =============================================================================

// Load decodes a seed document. Unknown keys are rejected so typos surface.
func Load(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("decode seed: %w", err)
	}
	return doc, nil
}

// LoadFile reads a seed document from disk.
func LoadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the embedded default settings.
func Default() Document {
	doc, err := Load(strings.NewReader(defaultsYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded defaults.yaml is invalid: %v", err))
	}
	return doc
}

// =============================================================================
// CONVERSION
// =============================================================================

// Build converts the document into domain values, validating every row.
func (d Document) Build() ([]expense.VATRate, []expense.Currency, []sqlite.CountryRate, error) {
	vats := make([]expense.VATRate, 0, len(d.VATRates))
	for i, v := range d.VATRates {
		pct, err := parseField(fmt.Sprintf("vat_rates[%d].percent", i), v.Percent)
		if err != nil {
			return nil, nil, nil, err
		}
		rate := expense.VATRate{Code: v.Code, Label: v.Label, Percent: pct}
		if err := rate.Validate(); err != nil {
			return nil, nil, nil, fmt.Errorf("vat_rates[%d]: %w", i, err)
		}
		vats = append(vats, rate)
	}

	currencies := make([]expense.Currency, 0, len(d.Currencies))
	for i, c := range d.Currencies {
		rate, err := parseField(fmt.Sprintf("currencies[%d].rate_to_base", i), c.RateToBase)
		if err != nil {
			return nil, nil, nil, err
		}
		cur := expense.Currency{Code: c.Code, Name: c.Name, RateToBase: rate}
		if err := cur.Validate(); err != nil {
			return nil, nil, nil, fmt.Errorf("currencies[%d]: %w", i, err)
		}
		currencies = append(currencies, cur)
	}

	countries := make([]sqlite.CountryRate, 0, len(d.Countries))
	for i, c := range d.Countries {
		partial, err := parseField(fmt.Sprintf("countries[%d].partial_rate", i), c.PartialRate)
		if err != nil {
			return nil, nil, nil, err
		}
		full, err := parseField(fmt.Sprintf("countries[%d].full_rate", i), c.FullRate)
		if err != nil {
			return nil, nil, nil, err
		}
		if len(c.Code) != 2 {
			return nil, nil, nil, generic.Invalid(fmt.Sprintf("countries[%d].code", i), "must be a two-letter country code")
		}
		rates := allowance.Rates{Partial: partial, Full: full}
		if err := rates.Validate(); err != nil {
			return nil, nil, nil, fmt.Errorf("countries[%d]: %w", i, err)
		}
		countries = append(countries, sqlite.CountryRate{
			Code: strings.ToUpper(c.Code), Name: c.Name, Rates: rates,
		})
	}
	return vats, currencies, countries, nil
}

func parseField(field, s string) (decimal.Decimal, error) {
	d, err := generic.ParseAmount(s)
	if err != nil {
		return decimal.Zero, generic.Invalid(field, "not a number: %q", s)
	}
	return d, nil
}

// =============================================================================
// APPLYING
// =============================================================================

// Apply validates doc and upserts all of its rows into s.
func Apply(ctx context.Context, s Settings, doc Document) (Result, error) {
	vats, currencies, countries, err := doc.Build()
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, v := range vats {
		if err := s.SaveVATRate(ctx, v); err != nil {
			return res, fmt.Errorf("seed vat rate %s: %w", v.Code, err)
		}
		res.VATRates++
	}
	for _, c := range currencies {
		if err := s.SaveCurrency(ctx, c); err != nil {
			return res, fmt.Errorf("seed currency %s: %w", c.Code, err)
		}
		res.Currencies++
	}
	for _, c := range countries {
		if err := s.SaveCountryRate(ctx, c); err != nil {
			return res, fmt.Errorf("seed country %s: %w", c.Code, err)
		}
		res.Countries++
	}
	return res, nil
}
