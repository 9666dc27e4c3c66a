package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	ledgerservice "heirloom/contexts/audit-trail/ledger-service"
	verificationservice "heirloom/contexts/legacy-verification/verification-service"
	verificationports "heirloom/contexts/legacy-verification/verification-service/ports"
	"heirloom/internal/shared/signing"
)

const testInternalSecret = "test-internal-secret"

type noopAudit struct{}

func (noopAudit) Record(context.Context, verificationports.AuditEntry) error { return nil }

func newTrustTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(new(bytes.Buffer), nil))
	return New(
		ledgerservice.NewInMemoryModule(logger),
		verificationservice.NewInMemoryModule(noopAudit{}, logger),
		testInternalSecret,
		logger,
		":0",
	)
}

func signTestRequest(req *http.Request, body []byte, callerID string, callerEmail string) {
	timestamp := time.Now().UnixMilli()
	signature := signing.Sign(testInternalSecret, signing.Descriptor{
		Method:          req.Method,
		Path:            req.URL.Path,
		TimestampMillis: timestamp,
		BodyHash:        signing.BodyHash(body),
		CallerID:        callerID,
		CallerEmail:     callerEmail,
	})
	req.Header.Set(signing.HeaderSignature, signature)
	req.Header.Set(signing.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	if callerID != "" {
		req.Header.Set(signing.HeaderUserID, callerID)
	}
	if callerEmail != "" {
		req.Header.Set(signing.HeaderUserEmail, callerEmail)
	}
}

func TestAuditAppendRequiresSignature(t *testing.T) {
	server := newTrustTestServer()
	body := []byte(`{"actorType":"USER","action":"LOGIN"}`)
	req := httptest.NewRequest(http.MethodPost, "/audit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode reject body: %v", err)
	}
	if out.Code != "missing_credentials" {
		t.Fatalf("expected missing_credentials, got %q", out.Code)
	}
}

func TestCasesRejectStaleSignature(t *testing.T) {
	server := newTrustTestServer()
	body := []byte(`{"subjectUserId":"u-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/cases", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	timestamp := time.Now().Add(-10 * time.Minute).UnixMilli()
	signature := signing.Sign(testInternalSecret, signing.Descriptor{
		Method:          http.MethodPost,
		Path:            "/cases",
		TimestampMillis: timestamp,
		BodyHash:        signing.BodyHash(body),
	})
	req.Header.Set(signing.HeaderSignature, signature)
	req.Header.Set(signing.HeaderTimestamp, strconv.FormatInt(timestamp, 10))

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode reject body: %v", err)
	}
	if out.Code != "stale_request" {
		t.Fatalf("expected stale_request, got %q", out.Code)
	}
}

func TestCasesRejectTamperedBody(t *testing.T) {
	server := newTrustTestServer()
	signedBody := []byte(`{"subjectUserId":"u-1"}`)
	sentBody := []byte(`{"subjectUserId":"u-2"}`)

	req := httptest.NewRequest(http.MethodPost, "/cases", bytes.NewReader(sentBody))
	req.Header.Set("Content-Type", "application/json")
	signTestRequest(req, signedBody, "svc-1", "")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHealthSkipsTrustGate(t *testing.T) {
	server := newTrustTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSignedAuditAppendAndQueryRoundTrip(t *testing.T) {
	server := newTrustTestServer()

	body := []byte(`{"actorId":"u-1","actorType":"USER","action":"LOGIN","correlationId":"corr-1"}`)
	appendReq := httptest.NewRequest(http.MethodPost, "/audit", bytes.NewReader(body))
	appendReq.Header.Set("Content-Type", "application/json")
	signTestRequest(appendReq, body, "svc-audit", "")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, appendReq)
	if rr.Code != http.StatusCreated {
		t.Fatalf("append: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	queryReq := httptest.NewRequest(http.MethodGet, "/audit?actorId=u-1", nil)
	signTestRequest(queryReq, nil, "svc-audit", "")

	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, queryReq)
	if rr.Code != http.StatusOK {
		t.Fatalf("query: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var out struct {
		Data []struct {
			Action      string `json:"action"`
			ContentHash string `json:"contentHash"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode query body: %v", err)
	}
	if len(out.Data) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(out.Data))
	}
	if out.Data[0].Action != "LOGIN" {
		t.Fatalf("expected LOGIN, got %q", out.Data[0].Action)
	}
	if out.Data[0].ContentHash == "" {
		t.Fatal("expected a content hash on the stored entry")
	}
}

func TestQueryAuditRejectsBadLimit(t *testing.T) {
	server := newTrustTestServer()
	req := httptest.NewRequest(http.MethodGet, "/audit?limit=abc", nil)
	signTestRequest(req, nil, "svc-audit", "")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDecideUnknownCaseReturnsNotFound(t *testing.T) {
	server := newTrustTestServer()
	body := []byte(`{"status":"verified","reviewerId":"r-1"}`)
	req := httptest.NewRequest(http.MethodPatch, "/cases/missing/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	signTestRequest(req, body, "r-1", "")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}
