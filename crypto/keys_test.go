package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEd25519SignAndVerify(t *testing.T) {
	key, err := GenerateSigningKey(AlgorithmEd25519)
	require.NoError(t, err)

	msg := []byte("intent|nonce-1|checkout")
	sig, err := key.Sign(msg)
	require.NoError(t, err)
	require.True(t, key.Public().Verify(msg, sig))
	require.False(t, key.Public().Verify([]byte("tampered"), sig))
}

func TestECDSAP256SignAndVerify(t *testing.T) {
	key, err := GenerateSigningKey(AlgorithmECDSAP256)
	require.NoError(t, err)

	msg := []byte("intent|nonce-2|checkout")
	sig, err := key.Sign(msg)
	require.NoError(t, err)
	require.True(t, key.Public().Verify(msg, sig))
	require.False(t, key.Public().Verify([]byte("tampered"), sig))
}

func TestVerifyingKeyRoundTripsThroughBytes(t *testing.T) {
	key, err := GenerateSigningKey(AlgorithmEd25519)
	require.NoError(t, err)

	pub := key.Public()
	reconstructed, err := VerifyingKeyFromBytes(AlgorithmEd25519, pub.Bytes())
	require.NoError(t, err)

	msg := []byte("payload")
	sig, err := key.Sign(msg)
	require.NoError(t, err)
	require.True(t, reconstructed.Verify(msg, sig))
}

func TestAddressRoundTripsThroughBech32(t *testing.T) {
	addr := MustNewAddress(AgentPrefix, make([]byte, 20))
	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Bytes(), decoded.Bytes())
	require.Equal(t, AgentPrefix, decoded.Prefix())
}

func TestGenerateSigningKeyRejectsUnknownAlgorithm(t *testing.T) {
	_, err := GenerateSigningKey("rsa")
	require.Error(t, err)
}
