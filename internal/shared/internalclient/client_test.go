package internalclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"heirloom/internal/shared/signing"
	"heirloom/internal/shared/trust"
)

func TestDoSignsRequestThatVerifiesAtReceiver(t *testing.T) {
	const secret = "shared"
	var verified bool
	var gotCorrelation string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		timestamp, err := strconv.ParseInt(r.Header.Get(signing.HeaderTimestamp), 10, 64)
		if err != nil {
			t.Errorf("bad timestamp header: %v", err)
		}
		verified = signing.Verify(secret, signing.Descriptor{
			Method:          r.Method,
			Path:            r.URL.Path,
			TimestampMillis: timestamp,
			BodyHash:        signing.BodyHash(raw),
			CallerID:        r.Header.Get(signing.HeaderUserID),
			CallerEmail:     r.Header.Get(signing.HeaderUserEmail),
		}, r.Header.Get(signing.HeaderSignature))
		gotCorrelation = r.Header.Get(signing.HeaderCorrelationID)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(srv.URL, secret, nil)
	resp, err := client.Do(context.Background(), "POST", "/inheritance/evaluate",
		[]byte(`{"userId":"u-1"}`), trust.Caller{ID: "u-1", Email: "u-1@example.com"}, "corr-9")
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !verified {
		t.Fatal("receiver could not verify the outbound signature")
	}
	if gotCorrelation != "corr-9" {
		t.Fatalf("correlation id not propagated, got %q", gotCorrelation)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", resp.Body)
	}
}

func TestDoFreshTimestampPerCall(t *testing.T) {
	var timestamps []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timestamps = append(timestamps, r.Header.Get(signing.HeaderTimestamp))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(srv.URL, "s", nil)
	if _, err := client.Do(context.Background(), "GET", "/cases", nil, trust.Caller{}, ""); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := client.Do(context.Background(), "GET", "/cases", nil, trust.Caller{}, ""); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if len(timestamps) != 2 || timestamps[0] == timestamps[1] {
		t.Fatalf("each call must stamp a fresh timestamp, got %v", timestamps)
	}
}

func TestDoWrapsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := New(srv.URL, "s", nil)
	_, err := client.Do(context.Background(), "POST", "/notifications/send", nil, trust.Caller{}, "")
	if !errors.Is(err, ErrDownstreamUnavailable) {
		t.Fatalf("expected ErrDownstreamUnavailable, got %v", err)
	}
}
