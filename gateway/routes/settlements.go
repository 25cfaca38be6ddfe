package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/settlement"
)

type settlementRoutes struct {
	srv *Server
}

func newSettlementRoutes(srv *Server) *settlementRoutes { return &settlementRoutes{srv: srv} }

func (sr *settlementRoutes) mount(r chi.Router) {
	r.Get("/", sr.list)
	r.Get("/{settlementID}", sr.get)
}

// list returns the settlements for a single escrow, optionally narrowed by
// type. The settlement record carries no agent or payee field of its own,
// so listing across agents would need a join against the escrow repository;
// until that index exists, callers scope by escrow_id.
func (sr *settlementRoutes) list(w http.ResponseWriter, r *http.Request) {
	escrowID := strings.TrimSpace(r.URL.Query().Get("escrow_id"))
	if escrowID == "" {
		writeError(w, agentpayerrors.Validation("escrow_id query parameter is required"))
		return
	}
	settlements, err := sr.srv.Settlements.ListByEscrow(r.Context(), escrowID)
	if err != nil {
		writeError(w, err)
		return
	}
	if want := settlement.Type(r.URL.Query().Get("type")); want != "" {
		filtered := make([]settlement.Settlement, 0, len(settlements))
		for _, s := range settlements {
			if s.Type == want {
				filtered = append(filtered, s)
			}
		}
		settlements = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"settlements": settlements})
}

func (sr *settlementRoutes) get(w http.ResponseWriter, r *http.Request) {
	s, err := sr.srv.Settlements.Get(r.Context(), chi.URLParam(r, "settlementID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
