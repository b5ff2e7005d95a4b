// Package expense implements the money side of business expenses:
// VAT splitting, currency conversion and expense validation.
package expense

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// VAT
// =============================================================================

var maxPercent = decimal.NewFromInt(100)

// VATRate is an administrator-configured VAT rate, e.g. {"STD", "Standard", 19}.
type VATRate struct {
	Code    string
	Label   string
	Percent decimal.Decimal
}

// Validate checks the code is set and the percentage lies in [0, 100].
func (r VATRate) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return generic.Invalid("code", "is required")
	}
	if r.Percent.IsNegative() || r.Percent.GreaterThan(maxPercent) {
		return generic.Invalid("percent", "must be between 0 and 100, got %s", r.Percent)
	}
	return nil
}

// Breakdown is a gross amount split into net and VAT. Net + VAT == Gross.
type Breakdown struct {
	Net   decimal.Decimal
	VAT   decimal.Decimal
	Gross decimal.Decimal
}

// SplitGross extracts the VAT contained in a gross (VAT-inclusive) amount.
// The net part is rounded to cents and VAT is the remainder, so the parts
// always add back up to the rounded gross.
func SplitGross(gross decimal.Decimal, rate VATRate) (Breakdown, error) {
	if err := rate.Validate(); err != nil {
		return Breakdown{}, err
	}
	if gross.IsNegative() {
		return Breakdown{}, generic.Invalid("gross", "must not be negative")
	}
	gross = generic.RoundMoney(gross)
	divisor := maxPercent.Add(rate.Percent)
	net := generic.RoundMoney(gross.Mul(maxPercent).Div(divisor))
	return Breakdown{Net: net, VAT: gross.Sub(net), Gross: gross}, nil
}

// FromNet adds VAT to a net amount.
func FromNet(net decimal.Decimal, rate VATRate) (Breakdown, error) {
	if err := rate.Validate(); err != nil {
		return Breakdown{}, err
	}
	if net.IsNegative() {
		return Breakdown{}, generic.Invalid("net", "must not be negative")
	}
	net = generic.RoundMoney(net)
	vat := generic.RoundMoney(generic.Percent(net, rate.Percent))
	return Breakdown{Net: net, VAT: vat, Gross: net.Add(vat)}, nil
}

func (b Breakdown) String() string {
	return fmt.Sprintf("net %s + vat %s = %s", b.Net.StringFixed(2), b.VAT.StringFixed(2), b.Gross.StringFixed(2))
}
