package identity

import (
	"testing"
	"time"

	"github.com/sardis-labs/agentpay/crypto"
	"github.com/sardis-labs/agentpay/native/keyrotation"
	"github.com/stretchr/testify/require"
)

func TestVerifySucceedsWithActiveKey(t *testing.T) {
	mgr := keyrotation.NewManager(time.Hour)
	signing, err := crypto.GenerateSigningKey(crypto.AlgorithmEd25519)
	require.NoError(t, err)
	mgr.RegisterKey("agent-1", "key-1", signing.Public())

	v := NewVerifier(mgr)
	id := Identity{AgentID: "agent-1", Algorithm: crypto.AlgorithmEd25519, Domain: "checkout.example"}

	payload := []byte("domain-hash|nonce-hash|purpose-hash|serialized")
	sig, err := signing.Sign(payload)
	require.NoError(t, err)

	keyID, err := v.Verify(id, "checkout.example", payload, sig)
	require.NoError(t, err)
	require.Equal(t, "key-1", keyID)
}

func TestVerifyRejectsDomainMismatchRegardlessOfSignatureValidity(t *testing.T) {
	mgr := keyrotation.NewManager(time.Hour)
	signing, _ := crypto.GenerateSigningKey(crypto.AlgorithmEd25519)
	mgr.RegisterKey("agent-1", "key-1", signing.Public())

	v := NewVerifier(mgr)
	id := Identity{AgentID: "agent-1", Algorithm: crypto.AlgorithmEd25519, Domain: "checkout.example"}

	payload := []byte("payload")
	sig, _ := signing.Sign(payload)

	_, err := v.Verify(id, "attacker.example", payload, sig)
	require.Error(t, err)
}

func TestVerifySucceedsDuringGracePeriodAfterRotation(t *testing.T) {
	mgr := keyrotation.NewManager(time.Hour)
	old, _ := crypto.GenerateSigningKey(crypto.AlgorithmEd25519)
	next, _ := crypto.GenerateSigningKey(crypto.AlgorithmEd25519)
	mgr.RegisterKey("agent-1", "key-old", old.Public())
	mgr.RegisterKey("agent-1", "key-new", next.Public())

	v := NewVerifier(mgr)
	id := Identity{AgentID: "agent-1", Algorithm: crypto.AlgorithmEd25519, Domain: "checkout.example"}

	payload := []byte("payload")
	sig, _ := old.Sign(payload)

	keyID, err := v.Verify(id, "checkout.example", payload, sig)
	require.NoError(t, err)
	require.Equal(t, "key-old", keyID)
}

func TestVerifyFailsForRevokedKey(t *testing.T) {
	mgr := keyrotation.NewManager(time.Hour)
	signing, _ := crypto.GenerateSigningKey(crypto.AlgorithmEd25519)
	mgr.RegisterKey("agent-1", "key-1", signing.Public())
	require.NoError(t, mgr.RevokeKey("key-1"))

	v := NewVerifier(mgr)
	id := Identity{AgentID: "agent-1", Algorithm: crypto.AlgorithmEd25519, Domain: "checkout.example"}

	payload := []byte("payload")
	sig, _ := signing.Sign(payload)

	_, err := v.Verify(id, "checkout.example", payload, sig)
	require.Error(t, err)
}
