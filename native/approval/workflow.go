package approval

import (
	"sync"
	"time"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

// Request tracks the votes on a transaction that confidence routing sent
// to a multi-party approval tier.
type Request struct {
	TransactionID     string
	RequiredApprovers []string
	Approvals         map[string]bool
	Rejections        map[string]bool
	ExpiresAt         time.Time
	Quorum            int
	CreatedAt         time.Time
}

// HasVoted reports whether signer already approved or rejected.
func (r Request) HasVoted(signer string) bool {
	return r.Approvals[signer] || r.Rejections[signer]
}

// IsExpired reports whether now is past the request's deadline.
func (r Request) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// IsRejected reports whether any required approver has rejected. A
// single rejection kills the request: spec.md treats rejection as
// terminal, not as a vote the quorum can outvote.
func (r Request) IsRejected() bool {
	return len(r.Rejections) > 0
}

// CheckQuorum reports whether enough approvals have been collected.
func (r Request) CheckQuorum() bool {
	return len(r.Approvals) >= r.Quorum
}

// Workflow tracks in-flight approval requests.
type Workflow struct {
	mu       sync.Mutex
	requests map[string]*Request
	now      func() time.Time
}

// NewWorkflow constructs an empty Workflow.
func NewWorkflow() *Workflow {
	return &Workflow{requests: make(map[string]*Request), now: time.Now}
}

// Create registers a new approval request for a transaction.
func (w *Workflow) Create(transactionID string, requiredApprovers []string, quorum int, ttl time.Duration) (*Request, error) {
	if quorum <= 0 || quorum > len(requiredApprovers) {
		return nil, agentpayerrors.Validation("quorum must be between 1 and the number of required approvers")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.requests[transactionID]; exists {
		return nil, agentpayerrors.Conflict("approval request already exists for transaction %s", transactionID)
	}
	now := w.now()
	req := &Request{
		TransactionID:     transactionID,
		RequiredApprovers: append([]string(nil), requiredApprovers...),
		Approvals:         make(map[string]bool),
		Rejections:        make(map[string]bool),
		ExpiresAt:         now.Add(ttl),
		Quorum:            quorum,
		CreatedAt:         now,
	}
	w.requests[transactionID] = req
	return req, nil
}

func (w *Workflow) isRequiredApprover(req *Request, signer string) bool {
	for _, a := range req.RequiredApprovers {
		if a == signer {
			return true
		}
	}
	return false
}

// Approve records signer's vote in favor of transactionID. It rejects an
// expired request, a request already killed by a rejection, a signer who
// already voted, or a signer outside the required-approver set.
func (w *Workflow) Approve(transactionID, signer string) (*Request, error) {
	return w.vote(transactionID, signer, true)
}

// Reject records signer's vote against transactionID, terminally killing
// the request.
func (w *Workflow) Reject(transactionID, signer string) (*Request, error) {
	return w.vote(transactionID, signer, false)
}

func (w *Workflow) vote(transactionID, signer string, approve bool) (*Request, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	req, ok := w.requests[transactionID]
	if !ok {
		return nil, agentpayerrors.NotFound("approval_request", transactionID)
	}
	now := w.now()
	if req.IsExpired(now) {
		return nil, agentpayerrors.Conflict("approval request %s has expired", transactionID)
	}
	if req.IsRejected() {
		return nil, agentpayerrors.Conflict("approval request %s was already rejected", transactionID)
	}
	if !w.isRequiredApprover(req, signer) {
		return nil, agentpayerrors.Validation("%s is not a required approver for %s", signer, transactionID)
	}
	if req.HasVoted(signer) {
		return nil, agentpayerrors.Conflict("%s already voted on %s", signer, transactionID)
	}

	if approve {
		req.Approvals[signer] = true
	} else {
		req.Rejections[signer] = true
	}
	return req, nil
}

// Get returns the approval request for transactionID.
func (w *Workflow) Get(transactionID string) (*Request, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	req, ok := w.requests[transactionID]
	return req, ok
}

// SweepExpired removes every request past its deadline, returning the
// count removed.
func (w *Workflow) SweepExpired() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	removed := 0
	for id, req := range w.requests {
		if req.IsExpired(now) {
			delete(w.requests, id)
			removed++
		}
	}
	return removed
}
