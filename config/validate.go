package config

import (
	"fmt"
	"strings"
)

// MinSecretKeyLength is the minimum secret_key length required outside dev.
const MinSecretKeyLength = 32

// Validate checks a Config for internal consistency and enforces the
// environment-specific invariants: prod requires chain_mode=live,
// HTTPS-only CORS, and a non-simulated signer.
func Validate(c *Config) error {
	if !c.Environment.Valid() {
		return fmt.Errorf("config: invalid environment %q", c.Environment)
	}
	if !c.ChainMode.Valid() {
		return fmt.Errorf("config: invalid chain_mode %q", c.ChainMode)
	}
	if c.MandateTTLSeconds <= 0 {
		return fmt.Errorf("config: mandate_ttl_seconds must be positive")
	}
	if c.AgentPaymentRateLimit.Enabled {
		if c.AgentPaymentRateLimit.MaxRequests <= 0 {
			return fmt.Errorf("config: agent_payment_rate_limit.max_requests must be positive when enabled")
		}
		if c.AgentPaymentRateLimit.WindowSeconds <= 0 {
			return fmt.Errorf("config: agent_payment_rate_limit.window_seconds must be positive when enabled")
		}
	}
	if c.ERC4337.Enabled && c.ERC4337.EntrypointV07 == "" {
		return fmt.Errorf("config: erc4337.entrypoint_v07_address required when erc4337 enabled")
	}

	if c.Environment != EnvDev {
		if len(c.SecretKey) < MinSecretKeyLength {
			return fmt.Errorf("config: secret_key must be at least %d characters outside dev", MinSecretKeyLength)
		}
	}

	if c.Environment == EnvProd {
		if c.ChainMode != ChainModeLive {
			return fmt.Errorf("config: prod requires chain_mode=live")
		}
		if err := validateProdCORS(c.AllowedOrigins); err != nil {
			return err
		}
		if c.Signer.Backend == "simulated" || c.Signer.Backend == "local" || c.Signer.Backend == "" {
			return fmt.Errorf("config: prod signer backend must not be %q", c.Signer.Backend)
		}
	}

	return nil
}

func validateProdCORS(origins []string) error {
	if len(origins) == 0 {
		return fmt.Errorf("config: prod requires at least one allowed_origins entry")
	}
	for _, origin := range origins {
		if origin == "*" {
			return fmt.Errorf("config: prod CORS must not allow wildcard origin")
		}
		if !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("config: prod CORS origin %q must be HTTPS", origin)
		}
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			return fmt.Errorf("config: prod CORS origin %q must not be localhost", origin)
		}
	}
	return nil
}
