package config

import (
	"os"
	"strings"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	GatewayPort string
	PostgresDSN string

	// InternalServiceSecret signs and verifies every service-to-service call.
	InternalServiceSecret string
	// JWTSecret validates end-user bearer sessions at the edge.
	JWTSecret string

	AuthServiceURL         string
	UserProfileServiceURL  string
	VerificationServiceURL string
	AuditServiceURL        string
	InheritanceRulesURL    string
	AssetVaultURL          string
	NotificationURL        string
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "heirloom"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	gatewayPort := os.Getenv("GATEWAY_PORT")
	if gatewayPort == "" {
		gatewayPort = "8000"
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		GatewayPort: gatewayPort,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		InternalServiceSecret: envTrim("INTERNAL_SERVICE_SECRET"),
		JWTSecret:             envTrim("JWT_SECRET"),

		AuthServiceURL:         envTrim("AUTH_SERVICE_URL"),
		UserProfileServiceURL:  envTrim("USER_PROFILE_SERVICE_URL"),
		VerificationServiceURL: envTrim("VERIFICATION_SERVICE_URL"),
		AuditServiceURL:        envTrim("AUDIT_SERVICE_URL"),
		InheritanceRulesURL:    envTrim("INHERITANCE_RULES_SERVICE_URL"),
		AssetVaultURL:          envTrim("ASSET_VAULT_SERVICE_URL"),
		NotificationURL:        envTrim("NOTIFICATION_SERVICE_URL"),
	}, nil
}

func envTrim(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}
