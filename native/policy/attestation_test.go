package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAttestIsDeterministicForIdenticalInputs(t *testing.T) {
	p := basePolicy()
	ctx := DecisionContext{AmountMinor: 1_000, Chain: "base", Token: "USDC", Scope: "checkout"}
	d := Decision{Allowed: true, Reason: ReasonOK}
	now := time.Now()

	r1, err := Attest(p, ctx, d, "decision-1", now)
	require.NoError(t, err)
	r2, err := Attest(p, ctx, d, "decision-1", now)
	require.NoError(t, err)

	require.Equal(t, r1.PolicyHash, r2.PolicyHash)
	require.Equal(t, r1.MerkleRoot, r2.MerkleRoot)
	require.Equal(t, "merkle::"+r1.MerkleRoot, r1.AuditAnchor)
}

func TestAttestPolicyHashIgnoresMutableCounters(t *testing.T) {
	p := basePolicy()
	ctx := DecisionContext{AmountMinor: 1_000, Scope: "checkout"}
	d := Decision{Allowed: true, Reason: ReasonOK}
	now := time.Now()

	r1, err := Attest(p, ctx, d, "decision-1", now)
	require.NoError(t, err)

	p.SpentTotalMinor = 999_999
	r2, err := Attest(p, ctx, d, "decision-1", now)
	require.NoError(t, err)

	require.Equal(t, r1.PolicyHash, r2.PolicyHash)
}

func TestAttestDiffersWhenDecisionChanges(t *testing.T) {
	p := basePolicy()
	ctx := DecisionContext{AmountMinor: 1_000, Scope: "checkout"}
	now := time.Now()

	allow, err := Attest(p, ctx, Decision{Allowed: true, Reason: ReasonOK}, "d1", now)
	require.NoError(t, err)
	deny, err := Attest(p, ctx, Decision{Allowed: false, Reason: ReasonScopeDenied}, "d1", now)
	require.NoError(t, err)

	require.NotEqual(t, allow.DecisionHash, deny.DecisionHash)
	require.NotEqual(t, allow.MerkleRoot, deny.MerkleRoot)
}

func TestMerkleRootOrderIndependentOfPairSwap(t *testing.T) {
	a := merkleRoot([]string{"leaf-a", "leaf-b", "leaf-c"})
	b := merkleRoot([]string{"leaf-b", "leaf-a", "leaf-c"})
	// swapping the first pair must not change the root since pairs are
	// sorted before hashing; the odd-length carry-forward keeps the third
	// leaf's position effect identical too.
	require.Equal(t, a, b)
}

func TestMerkleRootSingleLeafIsItself(t *testing.T) {
	require.Equal(t, "only-leaf", merkleRoot([]string{"only-leaf"}))
}
