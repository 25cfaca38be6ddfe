// Package compliance provides orchestrator.CompliancePort implementations.
// The core payment pipeline consumes KYC/sanctions screening as a preflight
// port rather than implementing decisioning logic itself; Simulated is the
// deny-list-backed provider used in dev/sandbox and as a drop-in stand-in
// until a real screening vendor is wired.
package compliance

import (
	"strings"
	"sync"

	"github.com/sardis-labs/agentpay/core/orchestrator"
	"github.com/sardis-labs/agentpay/native/mandate"
)

const defaultProvider = "simulated-screening"

// Simulated denies payments whose subject agent or destination address
// appears on an in-memory deny list, and otherwise allows.
type Simulated struct {
	mu                 sync.RWMutex
	deniedAgents       map[string]string
	deniedDestinations map[string]string
}

// NewSimulated constructs a Simulated compliance provider with an empty
// deny list.
func NewSimulated() *Simulated {
	return &Simulated{
		deniedAgents:       make(map[string]string),
		deniedDestinations: make(map[string]string),
	}
}

// DenyAgent adds an agent id to the deny list under the given reason code.
func (s *Simulated) DenyAgent(agentID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deniedAgents[strings.ToLower(agentID)] = reason
}

// DenyDestination adds a destination address to the deny list under the
// given reason code.
func (s *Simulated) DenyDestination(destination, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deniedDestinations[strings.ToLower(destination)] = reason
}

// Preflight implements orchestrator.CompliancePort.
func (s *Simulated) Preflight(payment mandate.Payment) (orchestrator.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if reason, denied := s.deniedAgents[strings.ToLower(payment.Subject)]; denied {
		return orchestrator.Decision{
			Allowed: false, Reason: reason, Provider: defaultProvider, Rule: "sanctions_agent_denylist",
		}, nil
	}
	if reason, denied := s.deniedDestinations[strings.ToLower(payment.Destination)]; denied {
		return orchestrator.Decision{
			Allowed: false, Reason: reason, Provider: defaultProvider, Rule: "sanctions_destination_denylist",
		}, nil
	}
	return orchestrator.Decision{
		Allowed: true, Provider: defaultProvider, Rule: "default_allow",
	}, nil
}
