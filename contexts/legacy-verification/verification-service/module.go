package verificationservice

import (
	"context"
	"log/slog"

	httpadapter "heirloom/contexts/legacy-verification/verification-service/adapters/http"
	"heirloom/contexts/legacy-verification/verification-service/adapters/memory"
	"heirloom/contexts/legacy-verification/verification-service/application"
	"heirloom/contexts/legacy-verification/verification-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Repository  ports.Repository
	Rules       ports.RuleEvaluator
	Assets      ports.AssetReleaser
	Notifier    ports.Notifier
	Audit       ports.AuditRecorder
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Repo:     deps.Repository,
		Rules:    deps.Rules,
		Assets:   deps.Assets,
		Notifier: deps.Notifier,
		Audit:    deps.Audit,
		Clock:    deps.Clock,
		IDGen:    deps.IDGenerator,
		Logger:   deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{Service: service, Logger: deps.Logger},
		Service: service,
	}
}

// NewInMemoryModule wires the module against in-process stores and no-op
// cascade targets, for tests and DSN-less boot.
func NewInMemoryModule(audit ports.AuditRecorder, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:  store,
		Rules:       noopSteps{},
		Assets:      noopSteps{},
		Notifier:    noopSteps{},
		Audit:       audit,
		Clock:       memory.SystemClock{},
		IDGenerator: memory.UUIDGenerator{},
		Logger:      logger,
	})
	module.Store = store
	return module
}

type noopSteps struct{}

func (noopSteps) EvaluateRules(context.Context, string, string) error { return nil }

func (noopSteps) MarkReleasable(context.Context, string, string) error { return nil }

func (noopSteps) SendNotification(context.Context, string, string, string, string) error {
	return nil
}
