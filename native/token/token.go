// Package token is the monetary and token registry (C1): typed stablecoin
// tickers, their decimals, and per-chain contract addresses, plus the
// decimal<->minor-unit conversion every other component relies on for
// policy and ledger math.
package token

import (
	"fmt"
	"math/big"
	"strings"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

// Type is a supported stablecoin ticker.
type Type string

const (
	USDC  Type = "USDC"
	USDT  Type = "USDT"
	PYUSD Type = "PYUSD"
	EURC  Type = "EURC"
)

// Metadata describes a token's decimals, issuer, peg, and per-chain
// contract addresses.
type Metadata struct {
	Symbol              string
	Name                string
	Decimals            int
	Issuer              string
	PegCurrency         string
	PegRatio            *big.Rat
	ContractAddresses   map[string]string
	MinTransferMinor    int64
	Active              bool
}

// registry is the process-wide table of supported tokens. It is built once
// at init and never mutated, so it needs no lock (unlike the teacher's
// escrow tokenRegistry, which protects a runtime allow-list mutated by
// governance transactions — there is no equivalent mutation path here).
var registry = map[Type]Metadata{
	USDC: {
		Symbol: "USDC", Name: "USD Coin", Decimals: 6, Issuer: "Circle",
		PegCurrency: "USD", PegRatio: big.NewRat(1, 1), Active: true,
		ContractAddresses: map[string]string{
			"base":     "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			"ethereum": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			"polygon":  "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
			"arbitrum": "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
			"optimism": "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
		},
	},
	USDT: {
		Symbol: "USDT", Name: "Tether USD", Decimals: 6, Issuer: "Tether",
		PegCurrency: "USD", PegRatio: big.NewRat(1, 1), Active: true,
		ContractAddresses: map[string]string{
			"ethereum": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
			"polygon":  "0xc2132D05D31c914a87C6611C10748AEb04B58e8F",
			"arbitrum": "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9",
		},
	},
	PYUSD: {
		Symbol: "PYUSD", Name: "PayPal USD", Decimals: 6, Issuer: "PayPal",
		PegCurrency: "USD", PegRatio: big.NewRat(1, 1), Active: true,
		ContractAddresses: map[string]string{
			"ethereum": "0x6c3ea9036406852006290770BEdFcAbA0e23A0e8",
		},
	},
	EURC: {
		Symbol: "EURC", Name: "Euro Coin", Decimals: 6, Issuer: "Circle",
		PegCurrency: "EUR", PegRatio: big.NewRat(108, 100), Active: true,
		ContractAddresses: map[string]string{
			"base":     "0x60a3E35Cc302bFA44Cb288Bc5a4F316Fdb1adb42",
			"ethereum": "0x1aBaEA1f7C830bD89Acc67eC4af516284b1bC33c",
			"polygon":  "0x9912af6da4F87Fc2b0Ae0B77A124e9B1B7Ba2F70",
		},
	},
}

// Get returns the metadata for a token, or InvalidToken if unknown.
func Get(t Type) (Metadata, error) {
	meta, ok := registry[Type(strings.ToUpper(string(t)))]
	if !ok {
		return Metadata{}, agentpayerrors.Validation("invalid token: %s", t)
	}
	return meta, nil
}

// ContractAddress resolves the contract address for a token on a chain, or
// UnsupportedChain if the token has no address on that chain.
func ContractAddress(t Type, chain string) (string, error) {
	meta, err := Get(t)
	if err != nil {
		return "", err
	}
	addr, ok := meta.ContractAddresses[strings.ToLower(chain)]
	if !ok {
		return "", agentpayerrors.Validation("unsupported chain %q for token %s", chain, t)
	}
	return addr, nil
}

// ToMinor converts a decimal amount (e.g. 12.345 as a *big.Rat) into the
// token's minor-unit integer representation. Truncation is treated as a
// caller bug: ToMinor requires the decimal to be exactly representable at
// the token's declared number of decimals.
func ToMinor(t Type, amount *big.Rat) (int64, error) {
	meta, err := Get(t)
	if err != nil {
		return 0, err
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(meta.Decimals)), nil)
	scaled := new(big.Rat).Mul(amount, new(big.Rat).SetInt(scale))
	if !scaled.IsInt() {
		return 0, agentpayerrors.Validation("amount %s is not representable at %d decimals for %s", amount.RatString(), meta.Decimals, t)
	}
	return scaled.Num().Int64(), nil
}

// Normalize converts a minor-unit integer amount into its decimal
// representation for display.
func Normalize(t Type, minor int64) (*big.Rat, error) {
	meta, err := Get(t)
	if err != nil {
		return nil, err
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(meta.Decimals)), nil)
	return new(big.Rat).SetFrac(big.NewInt(minor), scale), nil
}

// ToUSD converts an amount of t (in its own decimal units) to USD using the
// token's peg ratio.
func ToUSD(t Type, amount *big.Rat) (*big.Rat, error) {
	meta, err := Get(t)
	if err != nil {
		return nil, err
	}
	if meta.PegCurrency == "USD" {
		return new(big.Rat).Set(amount), nil
	}
	return new(big.Rat).Mul(amount, meta.PegRatio), nil
}

// SupportedTokens returns every registered token.
func SupportedTokens() []Type {
	out := make([]Type, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}

// TokensForChain returns active tokens that have a contract address on the
// given chain.
func TokensForChain(chain string) []Type {
	chain = strings.ToLower(chain)
	var out []Type
	for t, meta := range registry {
		if !meta.Active {
			continue
		}
		if _, ok := meta.ContractAddresses[chain]; ok {
			out = append(out, t)
		}
	}
	return out
}

// String renders a minor-unit amount as a fixed-point decimal string.
func String(t Type, minor int64) string {
	meta, err := Get(t)
	if err != nil {
		return fmt.Sprintf("%d", minor)
	}
	r, _ := Normalize(t, minor)
	return r.FloatString(meta.Decimals)
}
