package gatewayservice

import (
	"log/slog"
	"net/http"
	"strings"

	"heirloom/contexts/edge-trust/gateway-service/adapters/proxy"
	"heirloom/contexts/edge-trust/gateway-service/ports"
)

type Module struct {
	forwarders map[string]*proxy.Forwarder
	logger     *slog.Logger
}

type Dependencies struct {
	Verifier    ports.TokenVerifier
	Audit       ports.AuditRecorder
	Secret      string
	Routes      []proxy.Route
	PublicPaths []string
	Logger      *slog.Logger
}

// NewModule builds one signing forwarder per configured route. A route with
// no target is logged and skipped, never a runtime error: the prefix is just
// not mounted.
func NewModule(deps Dependencies) Module {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	forwarders := make(map[string]*proxy.Forwarder, len(deps.Routes))
	for _, route := range deps.Routes {
		if strings.TrimSpace(route.Target) == "" {
			logger.Info("gateway route not mounted",
				"event", "gateway_route_skipped",
				"module", "edge-trust/gateway-service",
				"layer", "module",
				"prefix", route.Prefix,
			)
			continue
		}
		forwarders[route.Prefix] = proxy.NewForwarder(route, proxy.Config{
			Verifier:    deps.Verifier,
			Audit:       deps.Audit,
			Secret:      deps.Secret,
			PublicPaths: deps.PublicPaths,
			Logger:      logger,
		})
	}
	return Module{forwarders: forwarders, logger: logger}
}

// Mount registers every configured route on the mux.
func (m Module) Mount(mux *http.ServeMux) {
	for prefix, forwarder := range m.forwarders {
		mux.Handle(prefix+"/", forwarder)
		mux.Handle(prefix, forwarder)
	}
}
