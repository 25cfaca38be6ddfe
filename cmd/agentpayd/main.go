// Command agentpayd runs the autonomous-agent payment orchestration
// service: mandate execution, holds, policy evaluation, A2A escrow and
// settlement, ledgering, webhook delivery, and the HTTP API surface
// that fronts all of it.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	rootconfig "github.com/sardis-labs/agentpay/config"
	"github.com/sardis-labs/agentpay/core/chainexec"
	"github.com/sardis-labs/agentpay/core/compliance"
	"github.com/sardis-labs/agentpay/core/events"
	"github.com/sardis-labs/agentpay/core/orchestrator"
	"github.com/sardis-labs/agentpay/core/repo"
	"github.com/sardis-labs/agentpay/core/repo/memory"
	"github.com/sardis-labs/agentpay/core/repo/postgres"
	"github.com/sardis-labs/agentpay/core/replay"
	gwconfig "github.com/sardis-labs/agentpay/gateway/config"
	"github.com/sardis-labs/agentpay/gateway/middleware"
	"github.com/sardis-labs/agentpay/gateway/routes"
	"github.com/sardis-labs/agentpay/native/approval"
	"github.com/sardis-labs/agentpay/native/identity"
	"github.com/sardis-labs/agentpay/native/keyrotation"
	"github.com/sardis-labs/agentpay/native/ledger"
	"github.com/sardis-labs/agentpay/native/settlement"
	"github.com/sardis-labs/agentpay/native/webhook"
	"github.com/sardis-labs/agentpay/observability/logging"
	telemetry "github.com/sardis-labs/agentpay/observability/otel"
	"github.com/sardis-labs/agentpay/rpc"
	deliverylimit "github.com/sardis-labs/agentpay/services/webhook"

	"github.com/google/uuid"
)

func main() {
	var appConfigPath, appSecretsPath, gatewayConfigPath string
	flag.StringVar(&appConfigPath, "config", "config.toml", "path to application configuration")
	flag.StringVar(&appSecretsPath, "secrets", "", "path to optional YAML secrets overlay")
	flag.StringVar(&gatewayConfigPath, "gateway-config", "", "path to gateway HTTP server configuration")
	flag.Parse()

	appCfg, err := rootconfig.Load(appConfigPath, appSecretsPath)
	if err != nil {
		log.Fatalf("load application config: %v", err)
	}

	slogger := logging.Setup("agentpayd", string(appCfg.Environment), logging.FileTarget{
		Path:       appCfg.LogFile,
		MaxSizeMB:  appCfg.LogMaxSizeMB,
		MaxAgeDays: appCfg.LogMaxAgeDays,
		MaxBackups: appCfg.LogMaxBackups,
	})
	logger := log.New(os.Stdout, "agentpayd ", log.LstdFlags|log.Lmsgprefix)

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "agentpayd",
		Environment: string(appCfg.Environment),
		Endpoint:    strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		Insecure:    true,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		slogger.Error("failed to initialise telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	gwCfg, err := gwconfig.Load(gatewayConfigPath)
	if err != nil {
		logger.Fatalf("load gateway config: %v", err)
	}

	repos, err := buildRepositories(appCfg)
	if err != nil {
		logger.Fatalf("build repositories: %v", err)
	}

	genID := func() string { return uuid.NewString() }

	bus := events.New(slogger)
	l := ledger.New(genID)
	replayCache := replay.NewInMemory()
	keyManager := keyrotation.NewManager(48 * time.Hour)
	idVerifier := identity.NewVerifier(keyManager)

	var executor orchestrator.ChainExecutorPort = chainexec.NewSimulated()
	var settlementExecutor settlement.ChainExecutorPort = chainexec.NewSimulatedSettlement()
	if appCfg.IsLiveChainMode() {
		logger.Println("live chain mode requested but no live executor is wired; falling back to the simulated executor")
	}

	complianceProvider := compliance.NewSimulated()

	orch := orchestrator.New(repos.Policies, complianceProvider, executor, l, genID,
		orchestrator.WithEvents(routes.NewBusEmitter(bus)),
	)

	settlementEngine := settlement.NewEngine(repos.Wallets, settlementExecutor, l, genID)
	approvalWorkflow := approval.NewWorkflow()
	webhookEngine := webhook.NewEngine(webhook.NewHTTPSender(), genID)

	wireWebhookDelivery(bus, repos.Webhooks, webhookEngine, logger)
	go sweepExpired(context.Background(), keyManager, approvalWorkflow, repos, logger)

	if addr := strings.TrimSpace(gwCfg.RPCListenAddress); addr != "" {
		go serveRPC(addr, repos, logger)
	}

	srv := &routes.Server{
		Orchestrator:     orch,
		Ledger:           l,
		Replay:           replayCache,
		MandateTTL:       appCfg.MandateTTL(),
		Agents:           repos.Agents,
		Wallets:          repos.Wallets,
		Policies:         repos.Policies,
		Holds:            repos.Holds,
		Escrows:          repos.Escrows,
		Settlements:      repos.Settlements,
		Webhooks:         repos.Webhooks,
		KeyManager:       keyManager,
		Identity:         idVerifier,
		SettlementEngine: settlementEngine,
		ApprovalWorkflow: approvalWorkflow,
		WebhookEngine:    webhookEngine,
		Events:           bus,
		GenID:            genID,
	}

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName:   gwCfg.Observability.ServiceName,
		MetricsPrefix: gwCfg.Observability.MetricsPrefix,
		LogRequests:   gwCfg.Observability.LogRequests,
		Enabled:       gwCfg.Observability.Metrics || gwCfg.Observability.Tracing,
	}, logger)

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:        gwCfg.Auth.Enabled,
		HMACSecret:     gwCfg.Auth.HMACSecret,
		Issuer:         gwCfg.Auth.Issuer,
		Audience:       gwCfg.Auth.Audience,
		ScopeClaim:     gwCfg.Auth.ScopeClaim,
		OptionalPaths:  gwCfg.Auth.OptionalPaths,
		AllowAnonymous: gwCfg.Auth.AllowAnonymous,
		ClockSkew:      gwCfg.Auth.ClockSkew,
	}, logger)

	rateLimits := make(map[string]middleware.RateLimit)
	for _, entry := range gwCfg.RateLimits {
		if entry.ID == "" {
			continue
		}
		rate := entry.RatePerSecond
		if rate <= 0 && entry.RequestsPerMinute > 0 {
			rate = entry.RequestsPerMinute / 60.0
		}
		rateLimits[entry.ID] = middleware.RateLimit{RatePerSecond: rate, Burst: entry.Burst}
	}
	if len(rateLimits) == 0 {
		rateLimits["mandates"] = middleware.RateLimit{RatePerSecond: 5, Burst: 20}
	}

	router, err := routes.New(routes.Config{
		Server:        srv,
		Authenticator: auth,
		RateLimiter:   middleware.NewRateLimiter(rateLimits, logger),
		Observability: obs,
		CORS: middleware.CORSConfig{
			AllowedOrigins: appCfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		RequiredScopes: map[string][]string{
			"/api/v2/mandates":    {"payments:execute"},
			"/api/v2/wallets":     {"wallets:manage"},
			"/api/v2/holds":       {"holds:manage"},
			"/api/v2/policies":    {"policies:manage"},
			"/api/v2/settlements": {"settlements:read"},
			"/api/v2/approvals":   {"approvals:vote"},
		},
		RateLimitKeys: map[string]string{"/api/v2/mandates": "mandates"},
	})
	if err != nil {
		logger.Fatalf("configure routes: %v", err)
	}

	handler := http.Handler(router)
	if gwCfg.Observability.Tracing {
		handler = otelhttp.NewHandler(router, "agentpayd")
	}

	configDir := ""
	if strings.TrimSpace(gatewayConfigPath) != "" {
		configDir = filepath.Dir(gatewayConfigPath)
	}
	tlsConfig, err := buildTLSConfig(configDir, gwCfg.Security)
	if err != nil {
		logger.Fatalf("configure TLS: %v", err)
	}
	if tlsConfig == nil && appCfg.IsProd() && !gwCfg.Security.AllowInsecure {
		logger.Fatal("TLS certificate and key are required in production; set security.tlsCertFile/tlsKeyFile or security.allowInsecure")
	}

	httpServer := &http.Server{
		Addr:         gwCfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  gwCfg.ReadTimeout,
		WriteTimeout: gwCfg.WriteTimeout,
		IdleTimeout:  gwCfg.IdleTimeout,
	}
	if tlsConfig != nil {
		httpServer.TLSConfig = tlsConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", gwCfg.ListenAddress)
	if err != nil {
		logger.Fatalf("listen: %v", err)
	}
	go func() {
		scheme := "http"
		if tlsConfig != nil {
			scheme = "https"
		}
		logger.Printf("listening on %s://%s", scheme, listener.Addr())
		var serveErr error
		if tlsConfig != nil {
			serveErr = httpServer.Serve(tls.NewListener(listener, tlsConfig))
		} else {
			serveErr = httpServer.Serve(listener)
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Fatalf("listen and serve: %v", serveErr)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
	bus.WaitForBackgroundTasks(5 * time.Second)
}

type repositories struct {
	Agents      repo.AgentRepository
	Wallets     repo.WalletRepository
	Policies    repo.PolicyRepository
	Holds       repo.HoldRepository
	Escrows     repo.EscrowRepository
	Settlements repo.SettlementRepository
	Webhooks    repo.WebhookRepository
}

// buildRepositories picks the in-memory adapters by default, switching to
// the durable postgres adapters when a database URL is configured. There
// is no boltdb option here: core/repo/boltdb only persists replay nonces
// and the webhook delivery log, not the full repository contract set.
func buildRepositories(cfg *rootconfig.Config) (repositories, error) {
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := postgres.Open(dsn)
		if err != nil {
			return repositories{}, fmt.Errorf("open postgres: %w", err)
		}
		return repositories{
			Agents:      postgres.NewAgentRepository(db),
			Wallets:     postgres.NewWalletRepository(db),
			Policies:    postgres.NewPolicyRepository(db),
			Holds:       postgres.NewHoldRepository(db),
			Escrows:     postgres.NewEscrowRepository(db),
			Settlements: postgres.NewSettlementRepository(db),
			Webhooks:    postgres.NewWebhookRepository(db),
		}, nil
	}
	return repositories{
		Agents:      memory.NewAgentRepository(),
		Wallets:     memory.NewWalletRepository(),
		Policies:    memory.NewPolicyRepository(),
		Holds:       memory.NewHoldRepository(),
		Escrows:     memory.NewEscrowRepository(),
		Settlements: memory.NewSettlementRepository(),
		Webhooks:    memory.NewWebhookRepository(),
	}, nil
}

// wireWebhookDelivery subscribes every bus event ("*") to the
// webhook engine, delivering to each active subscription whose event
// filter matches.
func wireWebhookDelivery(bus *events.Bus, webhooks repo.WebhookRepository, engine *webhook.Engine, logger *log.Logger) {
	limiter := deliverylimit.NewRateLimiter()
	bus.Subscribe("*", func(e events.Event) {
		ctx := context.Background()
		subs, err := webhooks.ListActiveSubscriptions(ctx)
		if err != nil {
			logger.Printf("list webhook subscriptions: %v", err)
			return
		}
		payload, err := payloadFor(e)
		if err != nil {
			logger.Printf("marshal webhook payload for %s: %v", e.EventID, err)
			return
		}
		now := time.Now()
		for _, sub := range subs {
			if !sub.Matches(e.Type) {
				continue
			}
			if !limiter.Allow(sub.SubscriptionID, deliverylimit.DefaultRateLimit, now) {
				logger.Printf("rate limit exceeded for webhook subscription %s, dropping delivery of %s", sub.SubscriptionID, e.EventID)
				continue
			}
			for _, attempt := range engine.Deliver(sub, e.EventID, e.Type, payload) {
				if err := webhooks.RecordAttempt(ctx, attempt); err != nil {
					logger.Printf("record webhook attempt: %v", err)
				}
			}
		}
	})
}

// serveRPC runs the gRPC facade over holds and escrows for
// service-to-service callers, alongside the HTTP gateway. It blocks, so
// the caller runs it in its own goroutine.
func serveRPC(addr string, repos repositories, logger *log.Logger) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Printf("rpc listen on %s: %v", addr, err)
		return
	}
	logger.Printf("rpc facade listening on %s", listener.Addr())
	srv := rpc.NewServer(repos.Holds, repos.Escrows)
	if err := srv.Serve(listener); err != nil {
		logger.Printf("rpc serve: %v", err)
	}
}

func sweepExpired(ctx context.Context, keys *keyrotation.Manager, approvals *approval.Workflow, repos repositories, logger *log.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			keys.SweepExpired()
			approvals.SweepExpired()
			expirableHolds, err := repos.Holds.ListExpirable(ctx, now.Unix())
			if err != nil {
				logger.Printf("list expirable holds: %v", err)
				continue
			}
			for _, h := range expirableHolds {
				if h.ExpireIfPast(now) {
					if err := repos.Holds.Put(ctx, h); err != nil {
						logger.Printf("persist expired hold %s: %v", h.HoldID, err)
					}
				}
			}
		}
	}
}

func buildTLSConfig(baseDir string, sec gwconfig.SecurityConfig) (*tls.Config, error) {
	certPath := resolveTLSPath(baseDir, sec.TLSCertFile)
	keyPath := resolveTLSPath(baseDir, sec.TLSKeyFile)
	caPath := resolveTLSPath(baseDir, sec.TLSClientCAFile)
	if strings.TrimSpace(certPath) == "" && strings.TrimSpace(keyPath) == "" {
		return nil, nil
	}
	if strings.TrimSpace(certPath) == "" || strings.TrimSpace(keyPath) == "" {
		return nil, fmt.Errorf("security.tlsCertFile and security.tlsKeyFile must both be provided when enabling TLS")
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if strings.TrimSpace(caPath) != "" {
		data, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("read client CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("parse client CA file %s", caPath)
		}
		tlsCfg.ClientCAs = pool
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return tlsCfg, nil
}

func resolveTLSPath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	if baseDir == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(baseDir, trimmed)
}

func payloadFor(e events.Event) ([]byte, error) {
	return json.Marshal(map[string]any{
		"event_id": e.EventID,
		"type":     e.Type,
		"data":     e.Data,
	})
}
