package routes

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sardis-labs/agentpay/core/repo/memory"
)

func newPolicyTestServer() *Server {
	now := time.Unix(1_700_000_000, 0)
	return &Server{
		Policies: memory.NewPolicyRepository(),
		Now:      func() time.Time { return now },
		GenID:    func() string { return "policy-test-id" },
	}
}

func newPolicyRouter(srv *Server) http.Handler {
	r := chi.NewRouter()
	r.Route("/", newPolicyRoutes(srv).mount)
	return r
}

func TestPolicyRoutesApplyThenGet(t *testing.T) {
	srv := newPolicyTestServer()
	handler := newPolicyRouter(srv)

	rec := doJSON(t, handler, http.MethodPost, "/apply", applyPolicyRequest{
		AgentID: "agent-1", TrustLevel: "standard",
		LimitPerTxMinor: 10_000, LimitTotalMinor: 100_000,
		AllowedScopes: []string{"payments.execute"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/agent-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "agent-1", body["AgentID"])
}

func TestPolicyRoutesApplyRejectsMissingAgentID(t *testing.T) {
	srv := newPolicyTestServer()
	handler := newPolicyRouter(srv)

	rec := doJSON(t, handler, http.MethodPost, "/apply", applyPolicyRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPolicyRoutesCheckAllowsWithinLimits(t *testing.T) {
	srv := newPolicyTestServer()
	handler := newPolicyRouter(srv)

	rec := doJSON(t, handler, http.MethodPost, "/apply", applyPolicyRequest{
		AgentID: "agent-1", TrustLevel: "standard",
		LimitPerTxMinor: 10_000, LimitTotalMinor: 100_000,
		AllowedScopes: []string{"payments.execute"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/check", checkPolicyRequest{
		AgentID: "agent-1", AmountMinor: 5_000, Chain: "base", Token: "USDC",
		Scope: "payments.execute",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["allowed"])
	require.NotEmpty(t, body["receipt"])
}

func TestPolicyRoutesCheckUnknownAgentNotFound(t *testing.T) {
	srv := newPolicyTestServer()
	handler := newPolicyRouter(srv)

	rec := doJSON(t, handler, http.MethodPost, "/check", checkPolicyRequest{AgentID: "ghost"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}
