package compliance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sardis-labs/agentpay/native/mandate"
)

func TestSimulatedAllowsByDefault(t *testing.T) {
	c := NewSimulated()
	decision, err := c.Preflight(mandate.Payment{Base: mandate.Base{Subject: "agent-1"}, Destination: "0xabc"})
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, "default_allow", decision.Rule)
}

func TestSimulatedDeniesListedAgent(t *testing.T) {
	c := NewSimulated()
	c.DenyAgent("agent-1", "ofac_match")
	decision, err := c.Preflight(mandate.Payment{Base: mandate.Base{Subject: "Agent-1"}})
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, "ofac_match", decision.Reason)
	require.Equal(t, "sanctions_agent_denylist", decision.Rule)
}

func TestSimulatedDeniesListedDestination(t *testing.T) {
	c := NewSimulated()
	c.DenyDestination("0xBAD", "sanctioned_address")
	decision, err := c.Preflight(mandate.Payment{Destination: "0xbad"})
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, "sanctioned_address", decision.Reason)
}
