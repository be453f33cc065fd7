package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"intake-server/internal/observability"
)

// Client delivers intake summaries to the configured webhook. Delivery is
// best-effort: failures are logged by the caller and never retried.
type Client struct {
	webhookURL string
	httpClient *http.Client
	logger     *observability.Logger
}

// New creates a webhook notification client
func New(webhookURL string, logger *observability.Logger) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Send posts free-text content to the webhook
func (c *Client) Send(ctx context.Context, content string) error {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}

	c.logger.Info(ctx, "Notification delivered")
	return nil
}
