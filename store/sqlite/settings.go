package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/timesheet-engine/allowance"
	"github.com/warp/timesheet-engine/expense"
)

// =============================================================================
// COUNTRY ALLOWANCE RATES
// =============================================================================

// CountryRate is the per-diem configuration for a destination country.
type CountryRate struct {
	Code      string // ISO 3166-1 alpha-2
	Name      string
	Rates     allowance.Rates
	UpdatedAt time.Time
}

// SaveCountryRate inserts or replaces a country's rates.
func (s *Store) SaveCountryRate(ctx context.Context, c CountryRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO country_rates (code, name, partial_rate, full_rate, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			partial_rate = excluded.partial_rate,
			full_rate = excluded.full_rate,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		c.Code, c.Name, c.Rates.Partial.String(), c.Rates.Full.String(), nowString())
	return wrapWriteError("save country rate", err)
}

// GetCountryRate looks up the rates for a country code.
func (s *Store) GetCountryRate(ctx context.Context, code string) (*CountryRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c CountryRate
	var partial, full, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT code, name, partial_rate, full_rate, updated_at FROM country_rates WHERE code = ?", code,
	).Scan(&c.Code, &c.Name, &partial, &full, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Rates = allowance.Rates{Partial: parseDecimal(partial), Full: parseDecimal(full)}
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// ListCountryRates returns all configured countries ordered by code.
func (s *Store) ListCountryRates(ctx context.Context) ([]CountryRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT code, name, partial_rate, full_rate, updated_at FROM country_rates ORDER BY code",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CountryRate
	for rows.Next() {
		var c CountryRate
		var partial, full, updatedAt string
		if err := rows.Scan(&c.Code, &c.Name, &partial, &full, &updatedAt); err != nil {
			return nil, err
		}
		c.Rates = allowance.Rates{Partial: parseDecimal(partial), Full: parseDecimal(full)}
		c.UpdatedAt = parseTime(updatedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCountryRate removes a country.
func (s *Store) DeleteCountryRate(ctx context.Context, code string) error {
	return s.deleteByKey(ctx, "country_rates", "code", "country", code)
}

// =============================================================================
// VAT RATES
// =============================================================================

// SaveVATRate inserts or replaces a VAT rate.
func (s *Store) SaveVATRate(ctx context.Context, r expense.VATRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO vat_rates (code, label, percent, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			label = excluded.label,
			percent = excluded.percent,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, r.Code, r.Label, r.Percent.String(), nowString())
	return wrapWriteError("save vat rate", err)
}

// GetVATRate looks up a VAT rate by code.
func (s *Store) GetVATRate(ctx context.Context, code string) (*expense.VATRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r expense.VATRate
	var percent string
	err := s.db.QueryRowContext(ctx,
		"SELECT code, label, percent FROM vat_rates WHERE code = ?", code,
	).Scan(&r.Code, &r.Label, &percent)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Percent = parseDecimal(percent)
	return &r, nil
}

// ListVATRates returns all VAT rates ordered by code.
func (s *Store) ListVATRates(ctx context.Context) ([]expense.VATRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT code, label, percent FROM vat_rates ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []expense.VATRate
	for rows.Next() {
		var r expense.VATRate
		var percent string
		if err := rows.Scan(&r.Code, &r.Label, &percent); err != nil {
			return nil, err
		}
		r.Percent = parseDecimal(percent)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteVATRate removes a VAT rate.
func (s *Store) DeleteVATRate(ctx context.Context, code string) error {
	return s.deleteByKey(ctx, "vat_rates", "code", "vat rate", code)
}

// =============================================================================
// CURRENCIES
// =============================================================================

// SaveCurrency inserts or replaces a currency.
func (s *Store) SaveCurrency(ctx context.Context, c expense.Currency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO currencies (code, name, rate_to_base, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			rate_to_base = excluded.rate_to_base,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, c.Code, c.Name, c.RateToBase.String(), nowString())
	return wrapWriteError("save currency", err)
}

// GetCurrency looks up a currency by code.
func (s *Store) GetCurrency(ctx context.Context, code string) (*expense.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c expense.Currency
	var rate string
	err := s.db.QueryRowContext(ctx,
		"SELECT code, name, rate_to_base FROM currencies WHERE code = ?", code,
	).Scan(&c.Code, &c.Name, &rate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.RateToBase = parseDecimal(rate)
	return &c, nil
}

// ListCurrencies returns all currencies ordered by code.
func (s *Store) ListCurrencies(ctx context.Context) ([]expense.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT code, name, rate_to_base FROM currencies ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []expense.Currency
	for rows.Next() {
		var c expense.Currency
		var rate string
		if err := rows.Scan(&c.Code, &c.Name, &rate); err != nil {
			return nil, err
		}
		c.RateToBase = parseDecimal(rate)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCurrency removes a currency.
func (s *Store) DeleteCurrency(ctx context.Context, code string) error {
	return s.deleteByKey(ctx, "currencies", "code", "currency", code)
}
