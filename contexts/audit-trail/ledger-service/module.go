package ledgerservice

import (
	"log/slog"

	httpadapter "heirloom/contexts/audit-trail/ledger-service/adapters/http"
	"heirloom/contexts/audit-trail/ledger-service/adapters/memory"
	"heirloom/contexts/audit-trail/ledger-service/application"
	"heirloom/contexts/audit-trail/ledger-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Repo:   deps.Repository,
		Clock:  deps.Clock,
		IDGen:  deps.IDGenerator,
		Logger: deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{Service: service, Logger: deps.Logger},
		Service: service,
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:  store,
		Clock:       memory.SystemClock{},
		IDGenerator: memory.UUIDGenerator{},
		Logger:      logger,
	})
	module.Store = store
	return module
}
