package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/warp/timesheet-engine/allowance"
	"github.com/warp/timesheet-engine/expense"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/seed"
	"github.com/warp/timesheet-engine/store/sqlite"
)

// =============================================================================
// COUNTRY RATE HANDLERS
// =============================================================================

// ListCountryRates returns every configured destination.
func (h *Handler) ListCountryRates(w http.ResponseWriter, r *http.Request) {
	countries, err := h.Store.ListCountryRates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list countries", err)
		return
	}

	dtos := make([]CountryRateDTO, len(countries))
	for i, c := range countries {
		dtos[i] = toCountryRateDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCountryRate returns one destination.
func (h *Handler) GetCountryRate(w http.ResponseWriter, r *http.Request) {
	code := settingCode(r)
	c, err := h.Store.GetCountryRate(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get country", err)
		return
	}
	if c == nil {
		h.fail(w, r, "Country not found", &generic.NotFoundError{Kind: "country", ID: code})
		return
	}
	writeJSON(w, http.StatusOK, toCountryRateDTO(*c))
}

// SaveCountryRate creates or replaces a destination's rates.
func (h *Handler) SaveCountryRate(w http.ResponseWriter, r *http.Request) {
	code := settingCode(r)
	if len(code) != 2 {
		h.fail(w, r, "Invalid country", generic.Invalid("code", "must be a two-letter country code"))
		return
	}

	var req SaveCountryRateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}
	rates := allowance.Rates{Partial: req.PartialRate, Full: req.FullRate}
	if err := rates.Validate(); err != nil {
		h.fail(w, r, "Invalid rates", err)
		return
	}

	c := sqlite.CountryRate{Code: code, Name: strings.TrimSpace(req.Name), Rates: rates}
	if err := h.Store.SaveCountryRate(r.Context(), c); err != nil {
		h.fail(w, r, "Failed to save country", err)
		return
	}
	h.Logger.InfoContext(r.Context(), "country rates saved", "country", code,
		"partial_rate", rates.Partial.String(), "full_rate", rates.Full.String())
	writeJSON(w, http.StatusOK, toCountryRateDTO(c))
}

// DeleteCountryRate removes a destination.
func (h *Handler) DeleteCountryRate(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCountryRate(r.Context(), settingCode(r)); err != nil {
		h.fail(w, r, "Failed to delete country", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// VAT RATE HANDLERS
// =============================================================================

// ListVATRates returns every VAT rate.
func (h *Handler) ListVATRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.Store.ListVATRates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list VAT rates", err)
		return
	}

	dtos := make([]VATRateDTO, len(rates))
	for i, v := range rates {
		dtos[i] = toVATRateDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetVATRate returns one VAT rate.
func (h *Handler) GetVATRate(w http.ResponseWriter, r *http.Request) {
	code := settingCode(r)
	v, err := h.Store.GetVATRate(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get VAT rate", err)
		return
	}
	if v == nil {
		h.fail(w, r, "VAT rate not found", &generic.NotFoundError{Kind: "vat rate", ID: code})
		return
	}
	writeJSON(w, http.StatusOK, toVATRateDTO(*v))
}

// SaveVATRate creates or replaces a VAT rate.
func (h *Handler) SaveVATRate(w http.ResponseWriter, r *http.Request) {
	var req SaveVATRateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}

	v := expense.VATRate{Code: settingCode(r), Label: req.Label, Percent: req.Percent}
	if err := v.Validate(); err != nil {
		h.fail(w, r, "Invalid VAT rate", err)
		return
	}
	if err := h.Store.SaveVATRate(r.Context(), v); err != nil {
		h.fail(w, r, "Failed to save VAT rate", err)
		return
	}
	writeJSON(w, http.StatusOK, toVATRateDTO(v))
}

// DeleteVATRate removes a VAT rate. Expenses keep the code they were booked with.
func (h *Handler) DeleteVATRate(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteVATRate(r.Context(), settingCode(r)); err != nil {
		h.fail(w, r, "Failed to delete VAT rate", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CURRENCY HANDLERS
// =============================================================================

// ListCurrencies returns every configured currency.
func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.Store.ListCurrencies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list currencies", err)
		return
	}

	dtos := make([]CurrencyDTO, len(currencies))
	for i, c := range currencies {
		dtos[i] = toCurrencyDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrency returns one currency.
func (h *Handler) GetCurrency(w http.ResponseWriter, r *http.Request) {
	code := settingCode(r)
	c, err := h.Store.GetCurrency(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get currency", err)
		return
	}
	if c == nil {
		h.fail(w, r, "Currency not found", &generic.NotFoundError{Kind: "currency", ID: code})
		return
	}
	writeJSON(w, http.StatusOK, toCurrencyDTO(*c))
}

// SaveCurrency creates or replaces a currency. The base currency always
// converts at 1.
func (h *Handler) SaveCurrency(w http.ResponseWriter, r *http.Request) {
	var req SaveCurrencyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, "Invalid request body", err)
		return
	}

	c := expense.Currency{Code: settingCode(r), Name: req.Name, RateToBase: req.RateToBase}
	if err := c.Validate(); err != nil {
		h.fail(w, r, "Invalid currency", err)
		return
	}
	if c.Code == h.BaseCurrency && !c.RateToBase.Equal(one) {
		h.fail(w, r, "Invalid currency", generic.Invalid("rate_to_base", "the base currency %s converts at 1", h.BaseCurrency))
		return
	}
	if err := h.Store.SaveCurrency(r.Context(), c); err != nil {
		h.fail(w, r, "Failed to save currency", err)
		return
	}
	writeJSON(w, http.StatusOK, toCurrencyDTO(c))
}

// DeleteCurrency removes a currency.
func (h *Handler) DeleteCurrency(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCurrency(r.Context(), settingCode(r)); err != nil {
		h.fail(w, r, "Failed to delete currency", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DEFAULTS
// =============================================================================

// AddDefaultSettings loads the built-in VAT rates, currencies and country
// rates. Existing rows with the same code are overwritten.
func (h *Handler) AddDefaultSettings(w http.ResponseWriter, r *http.Request) {
	res, err := seed.Apply(r.Context(), h.Store, seed.Default())
	if err != nil {
		h.fail(w, r, "Failed to add defaults", err)
		return
	}
	h.Logger.InfoContext(r.Context(), "default settings applied",
		"vat_rates", res.VATRates, "currencies", res.Currencies, "countries", res.Countries)
	writeJSON(w, http.StatusOK, res)
}

func settingCode(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
}
