package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	httptransport "heirloom/contexts/audit-trail/ledger-service/transport/http"
	"heirloom/internal/shared/internalclient"
	"heirloom/internal/shared/trust"
)

// Entry is what a producing service contributes to the ledger; id, timestamp
// and content hash are assigned server-side on append.
type Entry struct {
	ActorID       string
	ActorType     string
	Action        string
	TargetID      string
	TargetType    string
	CorrelationID string
	Metadata      map[string]any
}

// Client appends audit entries over the signed internal channel.
type Client struct {
	internal *internalclient.Client
	logger   *slog.Logger
}

func New(baseURL string, secret string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		internal: internalclient.New(baseURL, secret, logger),
		logger:   logger,
	}
}

// Record appends one entry and reports failure to the caller. Use this only
// where the operation's contract requires the audit write to succeed.
func (c *Client) Record(ctx context.Context, entry Entry) error {
	body, err := json.Marshal(httptransport.AppendAuditRequest{
		ActorID:       entry.ActorID,
		ActorType:     entry.ActorType,
		Action:        entry.Action,
		TargetID:      entry.TargetID,
		TargetType:    entry.TargetType,
		CorrelationID: entry.CorrelationID,
		Metadata:      entry.Metadata,
	})
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	resp, err := c.internal.Do(ctx, http.MethodPost, "/audit", body,
		trust.Caller{ID: entry.ActorID}, entry.CorrelationID)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("audit append rejected with status %d", resp.StatusCode)
	}
	return nil
}

// RecordAsync attempts the append without gating the caller: the write runs
// on its own goroutine, detached from the request's cancellation, and any
// failure is logged and swallowed.
func (c *Client) RecordAsync(ctx context.Context, entry Entry) {
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := c.Record(detached, entry); err != nil {
			c.logger.Warn("audit entry dropped",
				"event", "audit_record_dropped",
				"module", "audit-trail/ledger-service",
				"layer", "client",
				"action", entry.Action,
				"correlation_id", entry.CorrelationID,
				"error", err.Error(),
			)
		}
	}()
}
