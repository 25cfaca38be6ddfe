package orchestrator

import "github.com/sardis-labs/agentpay/native/mandate"

// CompliancePort runs a preflight check against an external compliance
// provider (sanctions/KYC/AML screening) before a payment is dispatched.
// A denial is terminal: the orchestrator never retries it.
type CompliancePort interface {
	Preflight(payment mandate.Payment) (Decision, error)
}

// Decision is a compliance preflight result, carrying enough provenance to
// populate the orchestrator's audit trail.
type Decision struct {
	Allowed  bool
	Reason   string
	Provider string
	Rule     string
}

// Receipt is what a chain executor returns after dispatching a payment.
type Receipt struct {
	TxHash string
	Block  int64
}

// ChainExecutorPort dispatches a verified Payment mandate to its target
// chain. Any failure is surfaced by the orchestrator as TransactionFailed;
// the orchestrator itself never retries a dispatch.
type ChainExecutorPort interface {
	DispatchPayment(payment mandate.Payment) (Receipt, error)
}
