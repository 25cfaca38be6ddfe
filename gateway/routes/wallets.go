package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/wallet"
)

type walletRoutes struct {
	srv *Server
}

func newWalletRoutes(srv *Server) *walletRoutes { return &walletRoutes{srv: srv} }

func (wr *walletRoutes) mount(r chi.Router) {
	r.Post("/", wr.create)
	r.Get("/", wr.list)
	r.Get("/{walletID}", wr.get)
}

type createWalletRequest struct {
	AgentID         string            `json:"agent_id"`
	AccountType     string            `json:"account_type"`
	Addresses       map[string]string `json:"addresses"`
	LimitPerTxMinor int64             `json:"limit_per_tx_minor"`
	LimitTotalMinor int64             `json:"limit_total_minor"`
}

func (wr *walletRoutes) create(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if strings.TrimSpace(req.AgentID) == "" {
		writeError(w, agentpayerrors.Validation("agent_id is required"))
		return
	}
	now := wr.srv.now()
	w2 := wallet.Wallet{
		WalletID: wr.srv.genID(), AgentID: req.AgentID,
		AccountType: wallet.AccountType(req.AccountType), Addresses: req.Addresses,
		LimitPerTxMinor: req.LimitPerTxMinor, LimitTotalMinor: req.LimitTotalMinor,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	if err := wr.srv.Wallets.Put(r.Context(), w2); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, w2)
}

func (wr *walletRoutes) list(w http.ResponseWriter, r *http.Request) {
	agentID := strings.TrimSpace(r.URL.Query().Get("agent_id"))
	if agentID == "" {
		writeError(w, agentpayerrors.Validation("agent_id query parameter is required"))
		return
	}
	wallets, err := wr.srv.Wallets.ListByAgent(r.Context(), agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wallets": wallets})
}

func (wr *walletRoutes) get(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "walletID")
	wlt, err := wr.srv.Wallets.Get(r.Context(), walletID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wlt)
}
