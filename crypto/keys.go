// Package crypto provides address encoding and agent signing key
// management. Addressing keeps the bech32 scheme of the system this was
// distilled from; key management is standard-library only (ed25519 and
// P-256 ECDSA), since agent identities are not EVM accounts and do not
// need secp256k1 or an Ethereum-compatible keystore format.
package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix defines the different types of human-readable address prefixes.
type AddressPrefix string

const (
	AgentPrefix  AddressPrefix = "agent"
	WalletPrefix AddressPrefix = "wallet"
)

// Address represents a 20-byte bech32-encoded address with a specific
// human-readable prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("address must be 20 bytes long, got %d", len(b))
	}
	cloned := append([]byte(nil), b...)
	return Address{prefix: prefix, bytes: cloned}, nil
}

// MustNewAddress constructs an address and panics if the input is invalid.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes...)
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	addr, err := NewAddress(AddressPrefix(prefix), conv)
	if err != nil {
		return Address{}, err
	}
	return addr, nil
}

// --- Agent signing keys ---

// Algorithm enumerates the signature schemes an AgentIdentity may use.
type Algorithm string

const (
	AlgorithmEd25519   Algorithm = "ed25519"
	AlgorithmECDSAP256 Algorithm = "ecdsa-p256"
)

// SigningKey is an agent's private signing key, either ed25519 or P-256
// ECDSA. Exactly one of the two fields is non-nil.
type SigningKey struct {
	Algorithm Algorithm
	ed25519   ed25519.PrivateKey
	ecdsa     *ecdsa.PrivateKey
}

// VerifyingKey is the public half of a SigningKey, as distributed in an
// AgentIdentity record.
type VerifyingKey struct {
	Algorithm Algorithm
	ed25519   ed25519.PublicKey
	ecdsa     *ecdsa.PublicKey
}

// GenerateSigningKey creates a new key pair for the given algorithm.
func GenerateSigningKey(alg Algorithm) (*SigningKey, error) {
	switch alg {
	case AlgorithmEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		return &SigningKey{Algorithm: alg, ed25519: priv}, nil
	case AlgorithmECDSAP256:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, err
		}
		return &SigningKey{Algorithm: alg, ecdsa: priv}, nil
	default:
		return nil, fmt.Errorf("crypto: unsupported algorithm %q", alg)
	}
}

// Public returns the verifying key for this signing key.
func (k *SigningKey) Public() *VerifyingKey {
	switch k.Algorithm {
	case AlgorithmEd25519:
		return &VerifyingKey{Algorithm: k.Algorithm, ed25519: k.ed25519.Public().(ed25519.PublicKey)}
	case AlgorithmECDSAP256:
		return &VerifyingKey{Algorithm: k.Algorithm, ecdsa: &k.ecdsa.PublicKey}
	default:
		return nil
	}
}

// Sign signs message, hashing it first for the ECDSA case since ecdsa.Sign
// operates on a digest; ed25519 signs the raw message per its own scheme.
func (k *SigningKey) Sign(message []byte) ([]byte, error) {
	switch k.Algorithm {
	case AlgorithmEd25519:
		return ed25519.Sign(k.ed25519, message), nil
	case AlgorithmECDSAP256:
		digest := sha256.Sum256(message)
		return ecdsa.SignASN1(rand.Reader, k.ecdsa, digest[:])
	default:
		return nil, fmt.Errorf("crypto: unsupported algorithm %q", k.Algorithm)
	}
}

// Bytes returns the raw private key material: the 32-byte ed25519 seed,
// or the big-endian private scalar D for P-256 (leading zero bytes
// dropped).
func (k *SigningKey) Bytes() []byte {
	switch k.Algorithm {
	case AlgorithmEd25519:
		return []byte(k.ed25519.Seed())
	case AlgorithmECDSAP256:
		return k.ecdsa.D.Bytes()
	default:
		return nil
	}
}

// Verify checks sig over message against k.
func (k *VerifyingKey) Verify(message, sig []byte) bool {
	switch k.Algorithm {
	case AlgorithmEd25519:
		return ed25519.Verify(k.ed25519, message, sig)
	case AlgorithmECDSAP256:
		digest := sha256.Sum256(message)
		return ecdsa.VerifyASN1(k.ecdsa, digest[:], sig)
	default:
		return false
	}
}

// Bytes returns the raw public key material.
func (k *VerifyingKey) Bytes() []byte {
	switch k.Algorithm {
	case AlgorithmEd25519:
		return []byte(k.ed25519)
	case AlgorithmECDSAP256:
		return elliptic.Marshal(elliptic.P256(), k.ecdsa.X, k.ecdsa.Y)
	default:
		return nil
	}
}

// VerifyingKeyFromBytes reconstructs a VerifyingKey from its raw bytes for
// the given algorithm.
func VerifyingKeyFromBytes(alg Algorithm, b []byte) (*VerifyingKey, error) {
	switch alg {
	case AlgorithmEd25519:
		if len(b) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("crypto: invalid ed25519 public key length %d", len(b))
		}
		return &VerifyingKey{Algorithm: alg, ed25519: ed25519.PublicKey(b)}, nil
	case AlgorithmECDSAP256:
		x, y := elliptic.Unmarshal(elliptic.P256(), b)
		if x == nil {
			return nil, fmt.Errorf("crypto: invalid P-256 public key bytes")
		}
		return &VerifyingKey{Algorithm: alg, ecdsa: &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}}, nil
	default:
		return nil, fmt.Errorf("crypto: unsupported algorithm %q", alg)
	}
}
