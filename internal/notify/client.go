package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"campusattend/internal/queue"
)

// Client forwards scan events to the portal's notification webhook. The
// receiver (email/SMS fan-out, activity log) is an external collaborator;
// this side only delivers the payload.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. With skip set, deliveries are acknowledged locally
// so the worker can run without a webhook receiver (dev setups).
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Health checks the webhook receiver.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("notify service request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify service unhealthy: %s", resp.Status)
	}
	return nil
}

// Deliver posts one scan event to the webhook. Retry policy is the
// receiver's concern, not ours.
func (c *Client) Deliver(ctx context.Context, evt queue.ScanEvent) error {
	if c.Skip {
		return nil
	}
	body, _ := json.Marshal(evt)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/notifications/scan", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("notify service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify service error %s: %s", resp.Status, string(bodyBytes))
	}
	return nil
}
