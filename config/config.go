// Package config loads and validates the process-wide configuration for
// the payment gateway, following the same load/createDefault shape the
// node config used, expanded for a multi-tenant HTTP service: environment
// and chain-mode selection, CORS, secrets, rate limiting, and the
// ERC-4337 rollout surface.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration object, decoded from TOML with an
// optional YAML secrets overlay merged on top.
type Config struct {
	Environment Environment `toml:"environment"`
	ChainMode   ChainMode   `toml:"chain_mode"`

	ListenAddress string `toml:"listen_address"`
	APIBaseURL    string `toml:"api_base_url"`
	DataDir       string `toml:"data_dir"`

	AllowedOrigins []string `toml:"allowed_origins"`
	AllowedDomains []string `toml:"allowed_domains"`

	MandateTTLSeconds int64 `toml:"mandate_ttl_seconds"`

	DatabaseURL string `toml:"database_url"`
	RedisURL    string `toml:"redis_url"`
	SecretKey   string `toml:"secret_key"`

	// LogFile, when set, rotates structured logs to this path instead of
	// stdout. Empty means stdout only.
	LogFile        string `toml:"log_file"`
	LogMaxSizeMB   int    `toml:"log_max_size_mb"`
	LogMaxAgeDays  int    `toml:"log_max_age_days"`
	LogMaxBackups  int    `toml:"log_max_backups"`

	AgentPaymentRateLimit RateLimit `toml:"agent_payment_rate_limit"`
	ERC4337               ERC4337   `toml:"erc4337"`
	Signer                Signer    `toml:"signer"`

	AllowOffChainSettlementInProd bool `toml:"allow_off_chain_settlement_in_prod"`
}

// secretsOverlay is the shape of the optional YAML file deploy tooling
// injects alongside the TOML file, for values that shouldn't be checked
// into the primary config: the database URL, the Redis URL and the
// service secret key.
type secretsOverlay struct {
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	SecretKey   string `yaml:"secret_key"`
}

// Load reads the TOML config at path, merges an optional YAML overlay at
// overlayPath (if it exists) over the secret fields, then validates the
// result. overlayPath may be empty, in which case no overlay is applied.
func Load(path, overlayPath string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg = defaultConfig()
		if err := writeDefault(path, cfg); err != nil {
			return nil, err
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if overlayPath != "" {
		if err := applyOverlay(cfg, overlayPath); err != nil {
			return nil, err
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverlay(cfg *Config, overlayPath string) error {
	if _, err := os.Stat(overlayPath); os.IsNotExist(err) {
		return nil
	}
	raw, err := os.ReadFile(overlayPath)
	if err != nil {
		return err
	}
	var overlay secretsOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return err
	}
	if overlay.DatabaseURL != "" {
		cfg.DatabaseURL = overlay.DatabaseURL
	}
	if overlay.RedisURL != "" {
		cfg.RedisURL = overlay.RedisURL
	}
	if overlay.SecretKey != "" {
		cfg.SecretKey = overlay.SecretKey
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Environment:       EnvDev,
		ChainMode:         ChainModeSimulated,
		ListenAddress:     ":8080",
		APIBaseURL:        "http://localhost:8080",
		DataDir:           "./agentpay-data",
		AllowedOrigins:    []string{"http://localhost:3000"},
		MandateTTLSeconds: 900,
		DatabaseURL:       "",
		RedisURL:          "",
		SecretKey:         "dev-secret-key-not-for-production-use",
		AgentPaymentRateLimit: RateLimit{
			Enabled: true, MaxRequests: 60, WindowSeconds: 60,
		},
		ERC4337: ERC4337{Enabled: false, RolloutStage: "disabled"},
		Signer:  Signer{Backend: "simulated"},
	}
}

func writeDefault(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
