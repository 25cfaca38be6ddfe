package config

import "time"

// IsProd reports whether c is running in the production environment.
func (c *Config) IsProd() bool { return c.Environment == EnvProd }

// IsLiveChainMode reports whether the executor port should dispatch real
// on-chain transactions rather than the deterministic simulated stand-in.
func (c *Config) IsLiveChainMode() bool { return c.ChainMode == ChainModeLive }

// MandateTTL is the configured mandate lifetime as a time.Duration.
func (c *Config) MandateTTL() time.Duration {
	return time.Duration(c.MandateTTLSeconds) * time.Second
}

// OriginAllowed reports whether origin is present in the CORS allow-list.
func (c *Config) OriginAllowed(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// DomainAllowed reports whether a merchant domain is present in the
// configured allow-list. An empty allow-list permits any domain, matching
// the dev-environment default of not restricting checkout origins.
func (c *Config) DomainAllowed(domain string) bool {
	if len(c.AllowedDomains) == 0 {
		return true
	}
	for _, allowed := range c.AllowedDomains {
		if allowed == domain {
			return true
		}
	}
	return false
}

// ERC4337ChainEnabled reports whether ERC-4337 user operations are accepted
// for the given chain under the current rollout configuration.
func (c *Config) ERC4337ChainEnabled(chain string) bool {
	if !c.ERC4337.Enabled {
		return false
	}
	if len(c.ERC4337.ChainAllowlist) == 0 {
		return true
	}
	for _, allowed := range c.ERC4337.ChainAllowlist {
		if allowed == chain {
			return true
		}
	}
	return false
}

// RateLimitWindow is the configured agent payment rate-limit window as a
// time.Duration, for direct use with core/cache.NewLimiterCache's
// idleTimeout and rate.Limit conversions.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.AgentPaymentRateLimit.WindowSeconds) * time.Second
}

// RateLimitPerSecond converts the configured window/max_requests pair into
// a requests-per-second figure for golang.org/x/time/rate.
func (c *Config) RateLimitPerSecond() float64 {
	if c.AgentPaymentRateLimit.WindowSeconds <= 0 {
		return 0
	}
	return float64(c.AgentPaymentRateLimit.MaxRequests) / float64(c.AgentPaymentRateLimit.WindowSeconds)
}

// AllowsOffChainSettlement reports whether a settlement may release funds
// ledger-only (no on-chain transaction) in the current environment. Off-chain
// settlement is always allowed outside prod; in prod it requires the explicit
// opt-in flag.
func (c *Config) AllowsOffChainSettlement() bool {
	if !c.IsProd() {
		return true
	}
	return c.AllowOffChainSettlementInProd
}
