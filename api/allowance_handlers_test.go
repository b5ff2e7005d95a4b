package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/allowance"
)

func TestCalculateAllowance_ExplicitRates(t *testing.T) {
	// GIVEN: Monday 20:00 to Thursday 06:00 with partial 40 / full 80
	s := newTestServer(t)

	// WHEN: The allowance is calculated
	rec := s.do(http.MethodPost, "/api/allowance/calculate", map[string]any{
		"start": "2025-03-10T20:00", "end": "2025-03-13T06:00",
		"partial_rate": 40, "full_rate": "80",
	})

	// THEN: Departure and return miss 8h, the two full days pay 80 each
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[AllowanceResponse](t, rec)
	assert.Equal(t, 160.0, resp.Allowance)
	assert.Equal(t, 4, resp.Days)
	require.Len(t, resp.Breakdown, 4)

	wantKinds := []allowance.Kind{allowance.FirstDay, allowance.FullDay, allowance.FullDay, allowance.LastDay}
	wantAmounts := []float64{0, 80, 80, 0}
	wantHours := []float64{4, 24, 24, 6}
	for i, d := range resp.Breakdown {
		assert.Equal(t, wantKinds[i], d.Type, "day %d", i)
		assert.Equal(t, wantAmounts[i], d.Amount, "day %d", i)
		assert.Equal(t, wantHours[i], d.HoursPresent, "day %d", i)
	}
	assert.Equal(t, "2025-03-10", resp.Breakdown[0].Date)
	assert.Equal(t, "2025-03-13", resp.Breakdown[3].Date)
	assert.Equal(t, 40.0, resp.Rates.Partial)
	assert.Empty(t, resp.Rates.CountryCode)
}

func TestCalculateAllowance_Scenarios(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		start string
		end   string
		total float64
		days  int
	}{
		{"same day 9h", "2025-03-10T08:00", "2025-03-10T17:00", 40, 1},
		{"same day 6h", "2025-03-10T09:00", "2025-03-10T15:00", 0, 1},
		{"two days both long", "2025-03-10T10:00", "2025-03-11T10:00", 80, 2},
		{"across midnight", "2025-03-10T23:00", "2025-03-11T01:00", 0, 2},
		{"exactly 8h", "2025-03-10T09:00", "2025-03-10T17:00", 40, 1},
		{"offset kept", "2025-03-10T23:30:00+01:00", "2025-03-11T09:30:00+01:00", 40, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/allowance/calculate", map[string]any{
				"start": tt.start, "end": tt.end, "country_code": "US",
			})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decodeBody[AllowanceResponse](t, rec)
			assert.Equal(t, tt.total, resp.Allowance)
			assert.Equal(t, tt.days, resp.Days)
		})
	}
}

func TestCalculateAllowance_CountryLookup(t *testing.T) {
	// GIVEN: France is configured with 36 / 53
	s := newTestServer(t)

	// WHEN: A three-day trip is priced by country code, in lower case
	rec := s.do(http.MethodPost, "/api/allowance/calculate", map[string]any{
		"start": "2025-03-10T07:00", "end": "2025-03-12T18:00", "country_code": "fr",
	})

	// THEN: 36 + 53 + 36
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[AllowanceResponse](t, rec)
	assert.Equal(t, 125.0, resp.Allowance)
	assert.Equal(t, "FR", resp.Rates.CountryCode)
	assert.Equal(t, 53.0, resp.Rates.Full)
}

func TestCalculateAllowance_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"end before start", map[string]any{"start": "2025-03-10T17:00", "end": "2025-03-10T08:00", "country_code": "US"}, http.StatusBadRequest},
		{"empty interval", map[string]any{"start": "2025-03-10T08:00", "end": "2025-03-10T08:00", "country_code": "US"}, http.StatusBadRequest},
		{"inverted interval beats unknown country", map[string]any{"start": "2025-03-11T08:00", "end": "2025-03-10T08:00", "country_code": "ZZ"}, http.StatusBadRequest},
		{"negative partial", map[string]any{"start": "2025-03-10T08:00", "end": "2025-03-10T17:00", "partial_rate": -1, "full_rate": 80}, http.StatusBadRequest},
		{"negative full", map[string]any{"start": "2025-03-10T08:00", "end": "2025-03-10T17:00", "partial_rate": 40, "full_rate": -80}, http.StatusBadRequest},
		{"only one rate", map[string]any{"start": "2025-03-10T08:00", "end": "2025-03-10T17:00", "partial_rate": 40}, http.StatusBadRequest},
		{"no country and no rates", map[string]any{"start": "2025-03-10T08:00", "end": "2025-03-10T17:00"}, http.StatusBadRequest},
		{"malformed start", map[string]any{"start": "monday", "end": "2025-03-10T17:00", "country_code": "US"}, http.StatusBadRequest},
		{"unknown country", map[string]any{"start": "2025-03-10T08:00", "end": "2025-03-10T17:00", "country_code": "ZZ"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/allowance/calculate", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeBody[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.Details)
		})
	}
}
