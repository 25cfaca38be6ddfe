// Package orchestrator implements the payment orchestrator (C9): the
// single code path allowed to turn a verified mandate chain into
// persisted state, running policy -> compliance -> dispatch -> ledger in
// that fixed order and never retrying a policy or compliance denial.
package orchestrator

import (
	"context"
	"time"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/ledger"
	"github.com/sardis-labs/agentpay/native/mandate"
	"github.com/sardis-labs/agentpay/native/policy"
)

// PolicyRepository resolves the spending policy governing a payment's
// subject agent. Matches the shape of repo.PolicyRepository so a
// core/repo/memory or core/repo/postgres PolicyRepository satisfies it
// directly, without this package needing to import core/repo.
type PolicyRepository interface {
	Get(ctx context.Context, agentID string) (policy.Policy, error)
	Put(ctx context.Context, p policy.Policy) error
}

// Emitter publishes domain events; core/events.Bus satisfies this.
type Emitter interface {
	Emit(eventType string, data map[string]any, fireAndForget bool)
}

type noopEmitter struct{}

func (noopEmitter) Emit(string, map[string]any, bool) {}

// Result is what execute_chain returns on success.
type Result struct {
	MandateID          string
	LedgerTxID         string
	ChainTxHash        string
	Chain              string
	AuditAnchor        string
	ComplianceProvider string
	ComplianceRule     string
	Status             string
}

// Orchestrator wires the policy engine, a compliance preflight, a chain
// executor, and the ledger into the fixed sequence spec.md §4.10 names.
type Orchestrator struct {
	policies   PolicyRepository
	rpc        policy.RPCPort
	state      policy.PolicyStatePort
	mcc        policy.MCCRegistry
	compliance CompliancePort
	executor   ChainExecutorPort
	ledger     *ledger.Ledger
	events     Emitter
	genID      func() string
	now        func() time.Time
}

// Option configures optional Orchestrator dependencies.
type Option func(*Orchestrator)

// WithRPCPort supplies the on-chain balance oracle the policy engine's
// insufficient-balance check uses.
func WithRPCPort(rpc policy.RPCPort) Option { return func(o *Orchestrator) { o.rpc = rpc } }

// WithPolicyStatePort supplies DB-authoritative spend counters for
// multi-instance deployments.
func WithPolicyStatePort(state policy.PolicyStatePort) Option {
	return func(o *Orchestrator) { o.state = state }
}

// WithMCCRegistry supplies merchant category classification.
func WithMCCRegistry(mcc policy.MCCRegistry) Option { return func(o *Orchestrator) { o.mcc = mcc } }

// WithEvents overrides the default no-op event emitter.
func WithEvents(e Emitter) Option { return func(o *Orchestrator) { o.events = e } }

// New constructs an Orchestrator. genID supplies ledger/settlement-style
// identifiers; callers typically pass a uuid.NewString-backed generator.
func New(policies PolicyRepository, compliance CompliancePort, executor ChainExecutorPort, l *ledger.Ledger, genID func() string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		policies: policies, compliance: compliance, executor: executor, ledger: l,
		genID: genID, now: time.Now, events: noopEmitter{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs execute_chain against an already structure-validated,
// signature-verified, replay-claimed mandate chain. It is the only
// function in the module allowed to run policy -> compliance -> dispatch
// -> ledger; every other caller that needs a payment executed goes
// through here.
func (o *Orchestrator) Execute(ctx context.Context, chain *mandate.Chain) (Result, error) {
	payment := chain.Payment
	now := o.now()

	pol, err := o.policies.Get(ctx, payment.Subject)
	if err != nil {
		return Result{}, err
	}

	scope := ""
	if len(chain.Intent.Scope) > 0 {
		scope = chain.Intent.Scope[0]
	}

	decision := pol.Evaluate(policy.Input{
		AmountMinor: payment.AmountMinor, FeeMinor: 0,
		Chain: payment.Chain, Token: payment.Token, Wallet: payment.WalletID,
		MerchantID: payment.MerchantDomain, Scope: scope, Now: now,
		RPC: o.rpc, State: o.state, MCCRegistry: o.mcc,
	})
	if !decision.Allowed {
		return Result{}, agentpayerrors.PolicyDenied(decision.Reason)
	}

	compliance, err := o.compliance.Preflight(payment)
	if err != nil {
		return Result{}, err
	}
	if !compliance.Allowed {
		return Result{}, agentpayerrors.ComplianceDenied(compliance.Reason, compliance.Provider, compliance.Rule)
	}

	receipt, err := o.executor.DispatchPayment(payment)
	if err != nil {
		return Result{}, agentpayerrors.TransactionFailed(payment.Chain, err.Error())
	}

	txID, _, err := o.ledger.AppendSettlement(
		"agent:"+payment.Subject, "destination:"+payment.Destination,
		payment.AmountMinor, payment.Token, payment.Chain, receipt.TxHash,
		ledger.StatusConfirmed, now)
	if err != nil {
		return Result{}, err
	}

	decisionCtx := policy.DecisionContext{
		AmountMinor: payment.AmountMinor, Chain: payment.Chain, Token: payment.Token,
		MerchantID: payment.MerchantDomain, Scope: scope,
	}
	attestation, err := policy.Attest(pol, decisionCtx, decision, o.genID(), now)
	if err != nil {
		return Result{}, err
	}

	if err := o.policies.Put(ctx, pol.RecordSpend(payment.AmountMinor, now)); err != nil {
		return Result{}, err
	}

	result := Result{
		MandateID: payment.MandateID, LedgerTxID: txID, ChainTxHash: receipt.TxHash,
		Chain: payment.Chain, AuditAnchor: attestation.AuditAnchor,
		ComplianceProvider: compliance.Provider, ComplianceRule: compliance.Rule,
		Status: "submitted",
	}

	o.events.Emit("payment.submitted", map[string]any{
		"mandate_id": result.MandateID, "ledger_tx_id": result.LedgerTxID,
		"chain_tx_hash": result.ChainTxHash, "chain": result.Chain,
	}, true)

	return result, nil
}
