package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type ledgerRoutes struct {
	srv *Server
}

func newLedgerRoutes(srv *Server) *ledgerRoutes { return &ledgerRoutes{srv: srv} }

func (lr *ledgerRoutes) mount(r chi.Router) {
	r.Get("/recent", lr.recent)
}

func (lr *ledgerRoutes) recent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": lr.srv.Ledger.Recent(limit)})
}
