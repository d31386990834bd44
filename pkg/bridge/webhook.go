// Copyright 2024-2026 Aiku AI

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/util/exerrors"
)

// webhookTimeout bounds each webhook POST (connect + read + write).
const webhookTimeout = 30 * time.Second

// WebhookEnvelope is the JSON body posted to the Discord webhook. Username
// and AvatarURL let server chat impersonate the originating player.
type WebhookEnvelope struct {
	Content   string `json:"content"`
	ThreadID  string `json:"thread_id,omitempty"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// WebhookClient posts message envelopes to a fixed Discord webhook URL.
// Sends are fire-and-forget: the caller gets a result channel for failure
// logging and never blocks on delivery.
type WebhookClient struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

var _ WebhookSender = (*WebhookClient)(nil)

// NewWebhookClient creates a webhook client for the given endpoint URL.
func NewWebhookClient(url string, log zerolog.Logger) *WebhookClient {
	return &WebhookClient{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
		log:    log.With().Str("component", "webhook").Logger(),
	}
}

// ExecuteAsync posts the envelope in the background and returns a buffered
// channel carrying the delivery result. Failed deliveries are dropped, not
// retried.
func (w *WebhookClient) ExecuteAsync(ctx context.Context, env WebhookEnvelope) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- w.Execute(ctx, env)
	}()
	return result
}

// Execute posts the envelope and waits for the response.
func (w *WebhookClient) Execute(ctx context.Context, env WebhookEnvelope) error {
	body := exerrors.Must(json.Marshal(&env))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
