package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSink delivers alerts and high-severity events as JSON POSTs to a
// single endpoint (chatops bridge, SIEM collector, pager webhook).
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a webhook sink posting to url
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// webhookPayload is the envelope posted to the endpoint
type webhookPayload struct {
	Kind  string         `json:"kind"`
	Alert *SecurityAlert `json:"alert,omitempty"`
	Event *SecurityEvent `json:"event,omitempty"`
}

// NotifyAlert posts an alert to the webhook
func (s *WebhookSink) NotifyAlert(ctx context.Context, alert SecurityAlert) error {
	return s.post(ctx, webhookPayload{Kind: "alert", Alert: &alert})
}

// ForwardEvent posts a high-severity event to the webhook
func (s *WebhookSink) ForwardEvent(ctx context.Context, event SecurityEvent) error {
	return s.post(ctx, webhookPayload{Kind: "event", Event: &event})
}

func (s *WebhookSink) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
