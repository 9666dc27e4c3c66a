package trust

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"heirloom/internal/shared/signing"
)

// DefaultMaxAge is the replay window: a signed request older than this is
// rejected even when the signature itself is valid.
const DefaultMaxAge = 5 * time.Minute

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config builds one inbound trust gate for one service. Each service gets its
// own instance with its own secret and unauthenticated-probe allow-list;
// rejection auditing stays at the edge, not here.
type Config struct {
	Secret    string
	SkipPaths []string
	MaxAge    time.Duration
	Clock     Clock
	Logger    *slog.Logger
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Middleware verifies the internal envelope on every inbound request:
// missing credentials, then replay window, then signature, in that order.
// On success the caller identity and correlation id are attached to the
// request context and the raw body is restored for the next handler.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.SkipPaths {
				if r.URL.Path == skip {
					next.ServeHTTP(w, r)
					return
				}
			}

			signature := strings.TrimSpace(r.Header.Get(signing.HeaderSignature))
			timestampRaw := strings.TrimSpace(r.Header.Get(signing.HeaderTimestamp))
			correlationID := strings.TrimSpace(r.Header.Get(signing.HeaderCorrelationID))

			if signature == "" || timestampRaw == "" {
				logger.Warn("inbound trust check failed",
					"event", "trust_missing_credentials",
					"module", "internal/shared/trust",
					"layer", "shared",
					"method", r.Method,
					"path", r.URL.Path,
					"correlation_id", correlationID,
				)
				writeReject(w, "missing_credentials", "missing internal signature or timestamp")
				return
			}

			// Both headers are present at this point. A timestamp that does
			// not parse can never match a signature, so it rejects as one.
			timestampMillis, err := strconv.ParseInt(timestampRaw, 10, 64)
			if err != nil {
				logger.Warn("inbound trust check failed",
					"event", "trust_invalid_signature",
					"module", "internal/shared/trust",
					"layer", "shared",
					"method", r.Method,
					"path", r.URL.Path,
					"correlation_id", correlationID,
				)
				writeReject(w, "invalid_signature", "invalid internal signature")
				return
			}
			if clock.Now().UnixMilli()-timestampMillis > maxAge.Milliseconds() {
				logger.Warn("inbound trust check failed",
					"event", "trust_stale_request",
					"module", "internal/shared/trust",
					"layer", "shared",
					"method", r.Method,
					"path", r.URL.Path,
					"correlation_id", correlationID,
				)
				writeReject(w, "stale_request", "request timestamp too old")
				return
			}

			// Hash exactly the bytes on the wire. Parsing and re-serializing
			// the body would change the byte sequence and break the signature.
			rawBody, err := io.ReadAll(r.Body)
			if err != nil {
				writeReject(w, "invalid_signature", "invalid internal signature")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(rawBody))

			callerID := strings.TrimSpace(r.Header.Get(signing.HeaderUserID))
			callerEmail := strings.TrimSpace(r.Header.Get(signing.HeaderUserEmail))

			ok := signing.Verify(cfg.Secret, signing.Descriptor{
				Method:          r.Method,
				Path:            r.URL.Path,
				TimestampMillis: timestampMillis,
				BodyHash:        signing.BodyHash(rawBody),
				CallerID:        callerID,
				CallerEmail:     callerEmail,
			}, signature)
			if !ok {
				logger.Warn("inbound trust check failed",
					"event", "trust_invalid_signature",
					"module", "internal/shared/trust",
					"layer", "shared",
					"method", r.Method,
					"path", r.URL.Path,
					"correlation_id", correlationID,
				)
				writeReject(w, "invalid_signature", "invalid internal signature")
				return
			}

			ctx := r.Context()
			if callerID != "" {
				ctx = WithCaller(ctx, Caller{ID: callerID, Email: callerEmail})
			}
			if correlationID != "" {
				ctx = WithCorrelationID(ctx, correlationID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeReject(w http.ResponseWriter, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}
