package internalclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"heirloom/internal/shared/signing"
	"heirloom/internal/shared/trust"
)

// ErrDownstreamUnavailable marks transport-level failures reaching another
// service, as opposed to a response the service actually produced.
var ErrDownstreamUnavailable = errors.New("downstream service unavailable")

const defaultTimeout = 5 * time.Second

// Client makes signed calls inside the trust domain. Each call stamps a
// fresh timestamp and signature, so a retried call never reuses a signature
// that the receiver's replay window would reject.
type Client struct {
	baseURL string
	secret  string
	httpc   *http.Client
	logger  *slog.Logger
}

// Response is the downstream reply with the body fully drained.
type Response struct {
	StatusCode int
	Body       []byte
}

func New(baseURL string, secret string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		httpc:   &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// Do sends one signed request. The caller identity and correlation id are
// threaded into the envelope headers so the receiver's trust gate can attach
// them to its own context. The signature covers the exact body bytes passed
// in; callers must hand over the bytes they transmit, not a struct to be
// re-marshalled here.
func (c *Client) Do(ctx context.Context, method string, path string, body []byte, caller trust.Caller, correlationID string) (Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Response{}, fmt.Errorf("build internal request: %w", err)
	}

	timestamp := time.Now().UnixMilli()
	signature := signing.Sign(c.secret, signing.Descriptor{
		Method:          method,
		Path:            path,
		TimestampMillis: timestamp,
		BodyHash:        signing.BodyHash(body),
		CallerID:        caller.ID,
		CallerEmail:     caller.Email,
	})

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signing.HeaderSignature, signature)
	req.Header.Set(signing.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	if caller.ID != "" {
		req.Header.Set(signing.HeaderUserID, caller.ID)
	}
	if caller.Email != "" {
		req.Header.Set(signing.HeaderUserEmail, caller.Email)
	}
	if correlationID != "" {
		req.Header.Set(signing.HeaderCorrelationID, correlationID)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Error("internal call transport failure",
			"event", "internal_call_failed",
			"module", "internal/shared/internalclient",
			"layer", "shared",
			"method", method,
			"path", path,
			"correlation_id", correlationID,
			"error", err.Error(),
		)
		return Response{}, fmt.Errorf("%w: %s %s: %v", ErrDownstreamUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("%w: read response from %s %s: %v", ErrDownstreamUnavailable, method, path, err)
	}
	return Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
