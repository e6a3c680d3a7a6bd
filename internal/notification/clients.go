package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client delivers one notification to its transport. Real SMS/email gateways
// live behind this boundary and are wired in deployment-specific builds.
type Client interface {
	Send(ctx context.Context, n *Notification) error
}

// WebhookClient posts notifications to a configured webhook endpoint.
type WebhookClient struct {
	client *resty.Client
	url    string
}

// NewWebhookClient creates a webhook client with retries handled by resty.
func NewWebhookClient(url string, timeout time.Duration, maxRetries int) *WebhookClient {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(maxRetries).
		SetRetryWaitTime(2 * time.Second)

	return &WebhookClient{client: client, url: url}
}

func (c *WebhookClient) Send(ctx context.Context, n *Notification) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"id":           n.ID,
			"complaint_id": n.ComplaintID,
			"recipient":    n.Recipient,
			"audience":     n.Audience,
			"message":      n.Message,
			"created_at":   n.CreatedAt,
		}).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("webhook send failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook send failed: status %d", resp.StatusCode())
	}
	return nil
}

// LogClient writes notifications to the service log. Used in development and
// whenever no webhook endpoint is configured.
type LogClient struct {
	logger *slog.Logger
}

func NewLogClient(logger *slog.Logger) *LogClient {
	return &LogClient{logger: logger}
}

func (c *LogClient) Send(_ context.Context, n *Notification) error {
	c.logger.Info("Notification dispatched",
		"notification_id", n.ID,
		"complaint_id", n.ComplaintID,
		"audience", n.Audience,
		"recipient", n.Recipient,
		"message", n.Message)
	return nil
}
