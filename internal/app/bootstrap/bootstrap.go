package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	ledgerservice "heirloom/contexts/audit-trail/ledger-service"
	ledgerpostgres "heirloom/contexts/audit-trail/ledger-service/adapters/postgres"
	auditclient "heirloom/contexts/audit-trail/ledger-service/client"
	gatewayservice "heirloom/contexts/edge-trust/gateway-service"
	gatewayaudit "heirloom/contexts/edge-trust/gateway-service/adapters/audit"
	"heirloom/contexts/edge-trust/gateway-service/adapters/jwtauth"
	"heirloom/contexts/edge-trust/gateway-service/adapters/proxy"
	verificationservice "heirloom/contexts/legacy-verification/verification-service"
	verificationaudit "heirloom/contexts/legacy-verification/verification-service/adapters/audit"
	"heirloom/contexts/legacy-verification/verification-service/adapters/downstream"
	verificationmemory "heirloom/contexts/legacy-verification/verification-service/adapters/memory"
	verificationpostgres "heirloom/contexts/legacy-verification/verification-service/adapters/postgres"
	"heirloom/internal/platform/config"
	"heirloom/internal/platform/db"
	"heirloom/internal/platform/httpserver"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type GatewayApp struct {
	mux    *http.ServeMux
	addr   string
	logger *slog.Logger
}

// BuildAPI wires the backend process: the audit ledger and the verification
// service, both mounted behind one trust gate. Without POSTGRES_DSN the
// process boots against in-memory stores, which keeps local runs DSN-free.
func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if cfg.InternalServiceSecret == "" {
		return nil, errors.New("INTERNAL_SERVICE_SECRET is required")
	}

	var pg *db.Postgres
	var ledgerModule ledgerservice.Module

	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}

		ledgerRepo := ledgerpostgres.NewRepository(pg.DB, logger)
		if err := ledgerRepo.Migrate(); err != nil {
			return nil, err
		}
		ledgerModule = ledgerservice.NewModule(ledgerservice.Dependencies{
			Repository:  ledgerRepo,
			Clock:       ledgerpostgres.SystemClock{},
			IDGenerator: ledgerpostgres.UUIDGenerator{},
			Logger:      logger,
		})
	} else {
		logger.Warn("no postgres dsn configured, using in-memory stores",
			"event", "bootstrap_memory_fallback",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		ledgerModule = ledgerservice.NewInMemoryModule(logger)
	}

	// The verification service audits through the ledger's HTTP surface even
	// when both live in this process, so the write path is identical in
	// single-binary and split deployments.
	auditURL := cfg.AuditServiceURL
	if auditURL == "" {
		auditURL = "http://127.0.0.1:" + cfg.HTTPPort
	}
	recorder := verificationaudit.Recorder{
		Client: auditclient.New(auditURL, cfg.InternalServiceSecret, logger),
	}

	verificationDeps := verificationservice.Dependencies{
		Rules:    downstream.NewRulesClient(cfg.InheritanceRulesURL, cfg.InternalServiceSecret, logger),
		Assets:   downstream.NewAssetsClient(cfg.AssetVaultURL, cfg.InternalServiceSecret, logger),
		Notifier: downstream.NewNotificationsClient(cfg.NotificationURL, cfg.InternalServiceSecret, logger),
		Audit:    recorder,
		Logger:   logger,
	}
	if pg != nil {
		verificationRepo := verificationpostgres.NewRepository(pg.DB, logger)
		if err := verificationRepo.Migrate(); err != nil {
			return nil, err
		}
		verificationDeps.Repository = verificationRepo
		verificationDeps.Clock = verificationpostgres.SystemClock{}
		verificationDeps.IDGenerator = verificationpostgres.UUIDGenerator{}
	} else {
		verificationDeps.Repository = verificationmemory.NewStore()
		verificationDeps.Clock = verificationmemory.SystemClock{}
		verificationDeps.IDGenerator = verificationmemory.UUIDGenerator{}
	}
	verificationModule := verificationservice.NewModule(verificationDeps)

	server := httpserver.New(
		ledgerModule,
		verificationModule,
		cfg.InternalServiceSecret,
		logger,
		normalizeAddr(cfg.HTTPPort),
	)
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

// BuildGateway wires the edge process: bearer verification, per-route signing
// forwarders, and fire-and-forget audit of every edge decision.
func BuildGateway() (*GatewayApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "gateway")
	if cfg.InternalServiceSecret == "" {
		return nil, errors.New("INTERNAL_SERVICE_SECRET is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	recorder := gatewayaudit.Recorder{
		Client: auditclient.New(cfg.AuditServiceURL, cfg.InternalServiceSecret, logger),
	}

	module := gatewayservice.NewModule(gatewayservice.Dependencies{
		Verifier: jwtauth.NewVerifier(cfg.JWTSecret),
		Audit:    recorder,
		Secret:   cfg.InternalServiceSecret,
		Routes: []proxy.Route{
			{Prefix: "/api/auth", Target: cfg.AuthServiceURL},
			{Prefix: "/api/user-profile", Target: cfg.UserProfileServiceURL},
			{Prefix: "/api/verification", Target: cfg.VerificationServiceURL},
			{Prefix: "/api/audit", Target: cfg.AuditServiceURL},
			{Prefix: "/api/inheritance", Target: cfg.InheritanceRulesURL},
			{Prefix: "/api/assets", Target: cfg.AssetVaultURL},
			{Prefix: "/api/notifications", Target: cfg.NotificationURL},
		},
		PublicPaths: []string{"/api/auth/login", "/api/auth/register", "/api/health"},
		Logger:      logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	module.Mount(mux)

	return &GatewayApp{
		mux:    mux,
		addr:   normalizeAddr(cfg.GatewayPort),
		logger: logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (g *GatewayApp) Run(_ context.Context) error {
	g.logger.Info("gateway app started",
		"event", "bootstrap_gateway_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"addr", g.addr,
	)
	return http.ListenAndServe(g.addr, g.mux)
}

func (g *GatewayApp) Close() error { return nil }

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
