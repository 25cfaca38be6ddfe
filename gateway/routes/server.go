package routes

import (
	"time"

	"github.com/sardis-labs/agentpay/core/events"
	"github.com/sardis-labs/agentpay/core/orchestrator"
	"github.com/sardis-labs/agentpay/core/repo"
	"github.com/sardis-labs/agentpay/core/replay"
	"github.com/sardis-labs/agentpay/native/approval"
	"github.com/sardis-labs/agentpay/native/identity"
	"github.com/sardis-labs/agentpay/native/keyrotation"
	"github.com/sardis-labs/agentpay/native/ledger"
	"github.com/sardis-labs/agentpay/native/settlement"
	"github.com/sardis-labs/agentpay/native/webhook"
)

// Server holds every dependency the direct HTTP handlers in this package
// need. It replaces the teacher's per-microservice reverse-proxy targets:
// this service is monolithic, so every route reaches straight into the
// core packages instead of forwarding to another process.
type Server struct {
	Orchestrator *orchestrator.Orchestrator
	Ledger       *ledger.Ledger
	Replay       replay.Cache
	MandateTTL   time.Duration

	Agents      repo.AgentRepository
	Wallets     repo.WalletRepository
	Policies    repo.PolicyRepository
	Holds       repo.HoldRepository
	Escrows     repo.EscrowRepository
	Settlements repo.SettlementRepository
	Webhooks    repo.WebhookRepository

	KeyManager *keyrotation.Manager
	Identity   *identity.Verifier

	SettlementEngine *settlement.Engine
	ApprovalWorkflow *approval.Workflow
	WebhookEngine    *webhook.Engine

	Events *events.Bus
	GenID  func() string
	Now    func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) genID() string {
	if s.GenID != nil {
		return s.GenID()
	}
	panic("routes: Server.GenID is required")
}

// busEmitter adapts *events.Bus (whose Emit returns an Event) to
// orchestrator.Emitter (whose Emit returns nothing) so the orchestrator
// never needs to know about the bus's richer return value.
type busEmitter struct{ bus *events.Bus }

func (e busEmitter) Emit(eventType string, data map[string]any, fireAndForget bool) {
	if e.bus == nil {
		return
	}
	e.bus.Emit(eventType, data, fireAndForget)
}

// NewBusEmitter wraps bus as an orchestrator.Emitter.
func NewBusEmitter(bus *events.Bus) orchestrator.Emitter { return busEmitter{bus: bus} }
