// Package identity implements the agent identity record and signature
// verifier (C4): domain/nonce/purpose-bound signature checks over a
// mandate's signing payload, tried against every currently valid key for
// an agent (see native/keyrotation for what "currently valid" means).
package identity

import (
	"github.com/sardis-labs/agentpay/crypto"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

// Identity is an AgentIdentity: the agent's ID, the algorithm its keys
// use, and the domain it is bound to. It holds no key; keys come from a
// KeySource.
type Identity struct {
	AgentID   string
	Algorithm crypto.Algorithm
	Domain    string
}

// KeySource resolves the set of currently verifiable public keys for an
// agent; native/keyrotation.Manager implements this.
type KeySource interface {
	ActiveKeys(agentID string) []KeyCandidate
}

// KeyCandidate is one public key an agent's signature may currently be
// checked against, along with the key's own identifier for audit logging.
type KeyCandidate struct {
	KeyID        string
	VerifyingKey *crypto.VerifyingKey
}

// Verifier checks mandate signatures against an agent's key rotation
// state.
type Verifier struct {
	keys KeySource
}

// NewVerifier constructs a Verifier backed by the given key source.
func NewVerifier(keys KeySource) *Verifier {
	return &Verifier{keys: keys}
}

// Verify checks sig over payload for agentID, bound to mandateDomain.
// Domain mismatch between the mandate and the identity is a hard reject
// regardless of which key would otherwise validate the signature. On
// success it returns the identifier of the key that validated it.
func (v *Verifier) Verify(identity Identity, mandateDomain string, payload, sig []byte) (string, error) {
	if identity.Domain != mandateDomain {
		return "", agentpayerrors.Validation(
			"domain mismatch: identity=%s mandate=%s", identity.Domain, mandateDomain)
	}

	for _, cand := range v.keys.ActiveKeys(identity.AgentID) {
		if cand.VerifyingKey.Verify(payload, sig) {
			return cand.KeyID, nil
		}
	}
	return "", agentpayerrors.Validation("signature verification failed for agent %s", identity.AgentID)
}
