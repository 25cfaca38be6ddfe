package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/holds"
)

type holdRoutes struct {
	srv *Server

	configuredMax time.Duration
}

func newHoldRoutes(srv *Server, configuredMax time.Duration) *holdRoutes {
	if configuredMax <= 0 {
		configuredMax = 24 * time.Hour
	}
	return &holdRoutes{srv: srv, configuredMax: configuredMax}
}

func (hr *holdRoutes) mount(r chi.Router) {
	r.Post("/", hr.create)
	r.Get("/{holdID}", hr.get)
	r.Post("/{holdID}/capture", hr.capture)
	r.Post("/{holdID}/void", hr.void)
	r.Get("/wallet/{walletID}", hr.listByWallet)
}

type createHoldRequest struct {
	WalletID         string `json:"wallet_id"`
	AmountMinor      int64  `json:"amount_minor"`
	Chain            string `json:"chain"`
	Token            string `json:"token"`
	DurationSeconds  int64  `json:"duration_seconds"`
}

func (hr *holdRoutes) create(w http.ResponseWriter, r *http.Request) {
	var req createHoldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	now := hr.srv.now()
	h, err := newHold(hr.srv.genID(), req, now, hr.configuredMax)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := hr.srv.Holds.Put(r.Context(), h); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (hr *holdRoutes) get(w http.ResponseWriter, r *http.Request) {
	h, err := hr.srv.Holds.Get(r.Context(), chi.URLParam(r, "holdID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

type captureHoldRequest struct {
	CaptureAmountMinor int64  `json:"capture_amount_minor"`
	CaptureTxID        string `json:"capture_tx_id"`
}

func (hr *holdRoutes) capture(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdID")
	var req captureHoldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	h, err := hr.srv.Holds.Get(r.Context(), holdID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Capture(req.CaptureAmountMinor, req.CaptureTxID, hr.srv.now()); err != nil {
		writeError(w, err)
		return
	}
	if err := hr.srv.Holds.Put(r.Context(), h); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (hr *holdRoutes) void(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdID")
	h, err := hr.srv.Holds.Get(r.Context(), holdID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Void(); err != nil {
		writeError(w, err)
		return
	}
	if err := hr.srv.Holds.Put(r.Context(), h); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (hr *holdRoutes) listByWallet(w http.ResponseWriter, r *http.Request) {
	holds, err := hr.srv.Holds.ListActive(r.Context(), chi.URLParam(r, "walletID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"holds": holds})
}

func newHold(id string, req createHoldRequest, now time.Time, configuredMax time.Duration) (*holds.Hold, error) {
	h, err := holds.Create(id, req.WalletID, req.AmountMinor, req.Chain, req.Token, now,
		time.Duration(req.DurationSeconds)*time.Second, configuredMax)
	if err != nil {
		return nil, agentpayerrors.Validation("%s", err.Error())
	}
	return h, nil
}
