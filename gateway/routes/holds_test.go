package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sardis-labs/agentpay/core/repo/memory"
)

func newTestServer() *Server {
	n := 0
	now := time.Unix(1_700_000_000, 0)
	return &Server{
		Holds: memory.NewHoldRepository(),
		Now:   func() time.Time { return now },
		GenID: func() string { n++; return "hold-test-id" },
	}
}

func newHoldRouter(srv *Server) http.Handler {
	r := chi.NewRouter()
	r.Route("/", newHoldRoutes(srv, 24*time.Hour).mount)
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHoldRoutesCreateAndGet(t *testing.T) {
	srv := newTestServer()
	handler := newHoldRouter(srv)

	rec := doJSON(t, handler, http.MethodPost, "/", createHoldRequest{
		WalletID: "wallet-1", AmountMinor: 1_000, Chain: "base", Token: "USDC", DurationSeconds: 3600,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/hold-test-id", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "hold-test-id", body["HoldID"])
	require.Equal(t, "active", body["State"])
}

func TestHoldRoutesCreateRejectsNonPositiveAmount(t *testing.T) {
	srv := newTestServer()
	handler := newHoldRouter(srv)

	rec := doJSON(t, handler, http.MethodPost, "/", createHoldRequest{
		WalletID: "wallet-1", AmountMinor: 0, Chain: "base", Token: "USDC", DurationSeconds: 3600,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHoldRoutesCaptureThenVoidFails(t *testing.T) {
	srv := newTestServer()
	handler := newHoldRouter(srv)

	rec := doJSON(t, handler, http.MethodPost, "/", createHoldRequest{
		WalletID: "wallet-1", AmountMinor: 1_000, Chain: "base", Token: "USDC", DurationSeconds: 3600,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/hold-test-id/capture", captureHoldRequest{
		CaptureAmountMinor: 900, CaptureTxID: "tx-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/hold-test-id/void", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHoldRoutesGetMissingIsNotFound(t *testing.T) {
	srv := newTestServer()
	handler := newHoldRouter(srv)

	rec := doJSON(t, handler, http.MethodGet, "/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHoldRoutesListByWallet(t *testing.T) {
	srv := newTestServer()
	handler := newHoldRouter(srv)

	rec := doJSON(t, handler, http.MethodPost, "/", createHoldRequest{
		WalletID: "wallet-1", AmountMinor: 1_000, Chain: "base", Token: "USDC", DurationSeconds: 3600,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/wallet/wallet-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body["holds"], 1)
}
