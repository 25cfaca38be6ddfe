package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/approval"
)

type approvalRoutes struct {
	srv *Server
}

func newApprovalRoutes(srv *Server) *approvalRoutes { return &approvalRoutes{srv: srv} }

func (ar *approvalRoutes) mount(r chi.Router) {
	r.Get("/{txID}", ar.get)
	r.Post("/{txID}/vote", ar.vote)
}

func (ar *approvalRoutes) get(w http.ResponseWriter, r *http.Request) {
	req, ok := ar.srv.ApprovalWorkflow.Get(chi.URLParam(r, "txID"))
	if !ok {
		writeError(w, agentpayerrors.NotFound("approval_request", chi.URLParam(r, "txID")))
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type voteRequest struct {
	Signer  string `json:"signer"`
	Approve bool   `json:"approve"`
}

func (ar *approvalRoutes) vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	txID := chi.URLParam(r, "txID")
	var (
		updated *approval.Request
		err     error
	)
	if req.Approve {
		updated, err = ar.srv.ApprovalWorkflow.Approve(txID, req.Signer)
	} else {
		updated, err = ar.srv.ApprovalWorkflow.Reject(txID, req.Signer)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
