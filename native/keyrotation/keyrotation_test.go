package keyrotation

import (
	"testing"
	"time"

	"github.com/sardis-labs/agentpay/crypto"
	"github.com/stretchr/testify/require"
)

func TestRegisterKeyBecomesActive(t *testing.T) {
	m := NewManager(time.Hour)
	signing, err := crypto.GenerateSigningKey(crypto.AlgorithmEd25519)
	require.NoError(t, err)

	k := m.RegisterKey("agent-1", "key-1", signing.Public())
	require.Equal(t, StateActive, k.State)

	cands := m.ActiveKeys("agent-1")
	require.Len(t, cands, 1)
	require.Equal(t, "key-1", cands[0].KeyID)
}

func TestRotationMovesPreviousKeyToRotatingThenExpired(t *testing.T) {
	fixed := time.Now()
	m := NewManager(time.Hour)
	m.now = func() time.Time { return fixed }

	k1, _ := crypto.GenerateSigningKey(crypto.AlgorithmEd25519)
	k2, _ := crypto.GenerateSigningKey(crypto.AlgorithmEd25519)
	m.RegisterKey("agent-1", "key-1", k1.Public())
	m.RegisterKey("agent-1", "key-2", k2.Public())

	state, err := m.KeyState("key-1")
	require.NoError(t, err)
	require.Equal(t, StateRotating, state)

	// still within grace period: both keys usable
	cands := m.ActiveKeys("agent-1")
	require.Len(t, cands, 2)

	m.now = func() time.Time { return fixed.Add(2 * time.Hour) }
	swept := m.SweepExpired()
	require.Equal(t, 1, swept)

	state, err = m.KeyState("key-1")
	require.NoError(t, err)
	require.Equal(t, StateExpired, state)

	cands = m.ActiveKeys("agent-1")
	require.Len(t, cands, 1)
	require.Equal(t, "key-2", cands[0].KeyID)
}

func TestEmergencyRevokeIsImmediate(t *testing.T) {
	m := NewManager(time.Hour)
	k1, _ := crypto.GenerateSigningKey(crypto.AlgorithmEd25519)
	m.RegisterKey("agent-1", "key-1", k1.Public())

	require.NoError(t, m.RevokeKey("key-1"))
	require.Empty(t, m.ActiveKeys("agent-1"))
}

func TestRevokeUnknownKeyReturnsNotFound(t *testing.T) {
	m := NewManager(time.Hour)
	require.Error(t, m.RevokeKey("missing"))
}
