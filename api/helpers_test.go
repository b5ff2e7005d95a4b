package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/timesheet-engine/seed"
	"github.com/warp/timesheet-engine/store/sqlite"
)

// fixedNow is a Wednesday; its week runs 2025-03-10 to 2025-03-16.
var fixedNow = time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	handler *Handler
	router  http.Handler
	store   *sqlite.Store
}

// newTestServer returns a router over an in-memory store loaded with the
// default settings (EUR base; US rates 40/80, FR 36/53, DE 14/28).
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = seed.Apply(context.Background(), store, seed.Default())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(store, logger, "EUR")
	h.Now = func() time.Time { return fixedNow }

	return &testServer{t: t, handler: h, router: NewRouter(h, RouterOptions{}), store: store}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// seedDirectory creates user "u-ada" (consultant) and project "p-acme".
func (s *testServer) seedDirectory() {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/users", map[string]any{
		"id": "u-ada", "name": "Ada Lovelace", "email": "ada@example.com",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/projects", map[string]any{
		"id": "p-acme", "code": "acme-01", "name": "Billing migration",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
