package downstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"heirloom/internal/shared/internalclient"
	"heirloom/internal/shared/trust"
)

// HTTP adapters for the three cascade steps. Each talks to its own service
// over the signed internal channel; none of them retries, and a stale retry
// would fail the receiver's replay check anyway.

type RulesClient struct {
	internal *internalclient.Client
}

func NewRulesClient(baseURL string, secret string, logger *slog.Logger) *RulesClient {
	return &RulesClient{internal: internalclient.New(baseURL, secret, logger)}
}

func (c *RulesClient) EvaluateRules(ctx context.Context, subjectUserID string, correlationID string) error {
	body, err := json.Marshal(map[string]string{"userId": subjectUserID})
	if err != nil {
		return err
	}
	return expectSuccess(c.internal.Do(ctx, http.MethodPost, "/inheritance/evaluate", body,
		trust.Caller{ID: subjectUserID}, correlationID))
}

type AssetsClient struct {
	internal *internalclient.Client
}

func NewAssetsClient(baseURL string, secret string, logger *slog.Logger) *AssetsClient {
	return &AssetsClient{internal: internalclient.New(baseURL, secret, logger)}
}

func (c *AssetsClient) MarkReleasable(ctx context.Context, subjectUserID string, correlationID string) error {
	body, err := json.Marshal(map[string]string{"userId": subjectUserID})
	if err != nil {
		return err
	}
	return expectSuccess(c.internal.Do(ctx, http.MethodPost, "/assets/mark-releasable", body,
		trust.Caller{ID: subjectUserID}, correlationID))
}

type NotificationsClient struct {
	internal *internalclient.Client
}

func NewNotificationsClient(baseURL string, secret string, logger *slog.Logger) *NotificationsClient {
	return &NotificationsClient{internal: internalclient.New(baseURL, secret, logger)}
}

func (c *NotificationsClient) SendNotification(ctx context.Context, subjectUserID string, notificationType string, message string, correlationID string) error {
	body, err := json.Marshal(map[string]string{
		"userId":  subjectUserID,
		"type":    notificationType,
		"message": message,
	})
	if err != nil {
		return err
	}
	return expectSuccess(c.internal.Do(ctx, http.MethodPost, "/notifications/send", body,
		trust.Caller{ID: subjectUserID}, correlationID))
}

func expectSuccess(resp internalclient.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("downstream call rejected with status %d", resp.StatusCode)
	}
	return nil
}
