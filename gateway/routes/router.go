package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sardis-labs/agentpay/gateway/middleware"
)

// Config wires the HTTP surface to a Server and the ambient middleware
// stack. Every domain mounted here reaches straight into the Server's
// dependencies instead of forwarding to a separate process.
type Config struct {
	Server        *Server
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig

	// RequiredScopes, keyed by mount prefix (e.g. "/api/v2/mandates"),
	// names the scopes the authenticator enforces for that prefix. A
	// prefix absent from this map is mounted without a scope
	// requirement (still subject to authentication itself).
	RequiredScopes map[string][]string
	// RateLimitKeys mirrors RequiredScopes for the rate limiter.
	RateLimitKeys map[string]string
}

func New(cfg Config) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := cfg.Server
	mounts := []struct {
		prefix string
		mount  func(chi.Router)
	}{
		{"/api/v2/mandates", newMandateRoutes(srv).mount},
		{"/api/v2/wallets", newWalletRoutes(srv).mount},
		{"/api/v2/holds", newHoldRoutes(srv, 24*time.Hour).mount},
		{"/api/v2/policies", newPolicyRoutes(srv).mount},
		{"/api/v2/ledger", newLedgerRoutes(srv).mount},
		{"/api/v2/settlements", newSettlementRoutes(srv).mount},
		{"/api/v2/approvals", newApprovalRoutes(srv).mount},
		{"/api/v2/transactions", newTransactionsRoutes(srv).mount},
		{"/api/v2/events", newEventRoutes(srv).mount},
		{"/api/v2/auth", newSessionRoutes(srv).mountAuth},
		{"/api/v2/health", newSessionRoutes(srv).mountHealth},
	}

	for _, m := range mounts {
		prefix, mount := m.prefix, m.mount
		r.Route(prefix, func(sr chi.Router) {
			if cfg.RateLimiter != nil {
				if key, ok := cfg.RateLimitKeys[prefix]; ok {
					sr.Use(cfg.RateLimiter.Middleware(key))
				}
			}
			if cfg.Authenticator != nil {
				sr.Use(cfg.Authenticator.Middleware(cfg.RequiredScopes[prefix]...))
			}
			if obs != nil {
				sr.Use(obs.Middleware(prefix))
			}
			mount(sr)
		})
	}

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	return r, nil
}
