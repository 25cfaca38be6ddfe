package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/token"
)

// transactionsRoutes exposes the chain/token registry (C1) and a minimal
// fee-estimation and routing surface. This service never broadcasts a raw
// transaction itself: dispatch happens through the chain-executor port
// inside the orchestrator, keyed off a signed mandate, not a free-form
// transaction blob.
type transactionsRoutes struct {
	srv *Server
}

func newTransactionsRoutes(srv *Server) *transactionsRoutes { return &transactionsRoutes{srv: srv} }

var supportedChains = []string{"base", "ethereum", "polygon", "arbitrum", "optimism"}

func (tr *transactionsRoutes) mount(r chi.Router) {
	r.Post("/estimate-gas", tr.estimateGas)
	r.Get("/tokens/{chain}", tr.tokensForChain)
	r.Get("/chains", tr.chains)
	r.Post("/route", tr.route)
	r.Get("/status/{txID}", tr.status)
}

type estimateGasRequest struct {
	Chain string `json:"chain"`
	Token string `json:"token"`
}

// estimateGas returns a static per-chain estimate. There is no live RPC
// gas oracle wired in; this is a placeholder large enough to keep policy
// fee checks conservative until a real estimator replaces it.
func (tr *transactionsRoutes) estimateGas(w http.ResponseWriter, r *http.Request) {
	var req estimateGasRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if _, err := token.Get(token.Type(req.Token)); err != nil {
		writeError(w, err)
		return
	}
	estimate := gasEstimateMinor(req.Chain)
	writeJSON(w, http.StatusOK, map[string]any{
		"chain":               req.Chain,
		"estimated_fee_minor": estimate,
	})
}

func gasEstimateMinor(chain string) int64 {
	switch chain {
	case "ethereum":
		return 250_000
	case "polygon", "arbitrum", "optimism", "base":
		return 5_000
	default:
		return 10_000
	}
}

func (tr *transactionsRoutes) tokensForChain(w http.ResponseWriter, r *http.Request) {
	chain := chi.URLParam(r, "chain")
	writeJSON(w, http.StatusOK, map[string]any{"tokens": token.TokensForChain(chain)})
}

func (tr *transactionsRoutes) chains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"chains": supportedChains})
}

type routeRequest struct {
	Token       string `json:"token"`
	AmountMinor int64  `json:"amount_minor"`
}

// route reports which chains can carry a token transfer of the requested
// size, ordered by the static fee estimate above (cheapest first).
func (tr *transactionsRoutes) route(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	meta, err := token.Get(token.Type(req.Token))
	if err != nil {
		writeError(w, err)
		return
	}
	if req.AmountMinor < meta.MinTransferMinor {
		writeError(w, agentpayerrors.Validation("amount below minimum transfer for %s", req.Token))
		return
	}

	type candidate struct {
		Chain             string `json:"chain"`
		EstimatedFeeMinor int64  `json:"estimated_fee_minor"`
	}
	var candidates []candidate
	for chain := range meta.ContractAddresses {
		candidates = append(candidates, candidate{Chain: chain, EstimatedFeeMinor: gasEstimateMinor(chain)})
	}
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].EstimatedFeeMinor < candidates[j-1].EstimatedFeeMinor; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": candidates})
}

// status looks up a settled transaction by its ledger transaction id.
func (tr *transactionsRoutes) status(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "txID")
	entries := tr.srv.Ledger.EntriesForTx(txID)
	if len(entries) == 0 {
		writeError(w, agentpayerrors.NotFound("transaction", txID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
