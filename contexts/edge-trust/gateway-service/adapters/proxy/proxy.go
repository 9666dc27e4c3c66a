package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	domainerrors "heirloom/contexts/edge-trust/gateway-service/domain/errors"
	"heirloom/contexts/edge-trust/gateway-service/ports"
	"heirloom/internal/shared/signing"

	"github.com/google/uuid"
)

// Audit actions emitted at the trust boundary. Rejection auditing is
// centralized here; backend trust gates do not audit their own rejections.
const (
	actionUnauthorized  = "UNAUTHORIZED_ACCESS_ATTEMPT"
	actionInvalidToken  = "INVALID_TOKEN_ACCESS_ATTEMPT"
	actionProxyError    = "PROXY_ERROR"
	actionResponseError = "PROXY_RESPONSE_ERROR"
	actionProxyPrefix   = "PROXY_REQUEST_"
)

const forwardTimeout = 5 * time.Second

// Route maps a public prefix to an internal base address.
type Route struct {
	Prefix string
	Target string
}

type Config struct {
	Verifier    ports.TokenVerifier
	Audit       ports.AuditRecorder
	Secret      string
	PublicPaths []string
	Logger      *slog.Logger
}

// Forwarder is the per-route trust boundary: it verifies the end-user
// bearer session, then re-expresses the request as a signed internal call
// and relays the downstream answer.
type Forwarder struct {
	route  Route
	cfg    Config
	httpc  *http.Client
	logger *slog.Logger
}

func NewForwarder(route Route, cfg Config) *Forwarder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		route:  route,
		cfg:    cfg,
		httpc:  &http.Client{Timeout: forwardTimeout},
		logger: logger,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	correlationID := strings.TrimSpace(r.Header.Get(signing.HeaderCorrelationID))
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	var identity ports.Identity
	if !f.isPublic(r.URL.Path) {
		var err error
		identity, err = f.authenticate(r)
		if err != nil {
			f.rejectAndAudit(w, r, err, correlationID)
			return
		}
	}

	// The raw bytes read here are the bytes forwarded and the bytes hashed
	// into the signature. Parsing and re-serializing would desync the hash.
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "unreadable request body")
		return
	}

	targetPath := f.rewritePath(r.URL.Path)
	timestamp := time.Now().UnixMilli()
	sig := signing.Sign(f.cfg.Secret, signing.Descriptor{
		Method:          r.Method,
		Path:            targetPath,
		TimestampMillis: timestamp,
		BodyHash:        signing.BodyHash(rawBody),
		CallerID:        identity.SubjectID,
		CallerEmail:     identity.Email,
	})

	targetURL := strings.TrimRight(f.route.Target, "/") + targetPath
	if r.URL.RawQuery != "" {
		targetURL += "?" + r.URL.RawQuery
	}
	outbound, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, strings.NewReader(string(rawBody)))
	if err != nil {
		writeError(w, http.StatusBadGateway, "bad_gateway", "upstream request could not be built")
		return
	}
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		outbound.Header.Set("Content-Type", contentType)
	}
	outbound.Header.Set(signing.HeaderSignature, sig)
	outbound.Header.Set(signing.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	outbound.Header.Set(signing.HeaderCorrelationID, correlationID)
	if identity.SubjectID != "" {
		outbound.Header.Set(signing.HeaderUserID, identity.SubjectID)
		outbound.Header.Set(signing.HeaderUserEmail, identity.Email)
	}

	resp, err := f.httpc.Do(outbound)
	if err != nil {
		f.logger.Error("proxy forward failed",
			"event", "gateway_proxy_failed",
			"module", "edge-trust/gateway-service",
			"layer", "adapters/proxy",
			"method", r.Method,
			"path", r.URL.Path,
			"correlation_id", correlationID,
			"error", err.Error(),
		)
		f.cfg.Audit.RecordAsync(r.Context(), ports.AuditEntry{
			ActorID:       identity.SubjectID,
			ActorType:     "SYSTEM",
			Action:        actionProxyError,
			CorrelationID: correlationID,
			Metadata: map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"error":  err.Error(),
			},
		})
		writeError(w, http.StatusBadGateway, "bad_gateway", "upstream service unavailable")
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, http.StatusBadGateway, "bad_gateway", "upstream response unreadable")
		return
	}

	if resp.StatusCode >= 400 {
		f.cfg.Audit.RecordAsync(r.Context(), ports.AuditEntry{
			ActorID:       identity.SubjectID,
			ActorType:     "SYSTEM",
			Action:        actionResponseError,
			CorrelationID: correlationID,
			Metadata: map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": resp.StatusCode,
			},
		})
	} else {
		actorType := "SYSTEM"
		if identity.SubjectID != "" {
			actorType = "USER"
		}
		f.cfg.Audit.RecordAsync(r.Context(), ports.AuditEntry{
			ActorID:       identity.SubjectID,
			ActorType:     actorType,
			Action:        actionProxyPrefix + strings.ToUpper(r.Method),
			CorrelationID: correlationID,
			Metadata: map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": resp.StatusCode,
			},
		})
	}

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set(signing.HeaderCorrelationID, correlationID)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)
}

func (f *Forwarder) authenticate(r *http.Request) (ports.Identity, error) {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if authorization == "" || !strings.HasPrefix(authorization, "Bearer ") {
		return ports.Identity{}, domainerrors.ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	if token == "" {
		return ports.Identity{}, domainerrors.ErrMissingToken
	}
	return f.cfg.Verifier.Verify(r.Context(), token)
}

// rejectAndAudit answers 401 and records exactly one audit entry naming the
// rejection reason. External callers see only the short message.
func (f *Forwarder) rejectAndAudit(w http.ResponseWriter, r *http.Request, cause error, correlationID string) {
	action := actionInvalidToken
	message := "invalid or expired token"
	if errors.Is(cause, domainerrors.ErrMissingToken) {
		action = actionUnauthorized
		message = "authentication required"
	}

	f.logger.Warn("edge authentication rejected",
		"event", "gateway_auth_rejected",
		"module", "edge-trust/gateway-service",
		"layer", "adapters/proxy",
		"method", r.Method,
		"path", r.URL.Path,
		"reason", cause.Error(),
		"correlation_id", correlationID,
	)
	f.cfg.Audit.RecordAsync(r.Context(), ports.AuditEntry{
		ActorType:     "SYSTEM",
		Action:        action,
		CorrelationID: correlationID,
		Metadata: map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"reason": cause.Error(),
			"ip":     clientIP(r),
		},
	})
	writeError(w, http.StatusUnauthorized, "unauthorized", message)
}

func (f *Forwarder) isPublic(path string) bool {
	for _, public := range f.cfg.PublicPaths {
		if path == public {
			return true
		}
	}
	return false
}

// rewritePath strips the public prefix so the signature covers the exact
// path the receiving service sees.
func (f *Forwarder) rewritePath(path string) string {
	rewritten := strings.TrimPrefix(path, f.route.Prefix)
	if rewritten == "" || !strings.HasPrefix(rewritten, "/") {
		rewritten = "/" + rewritten
	}
	return rewritten
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}
