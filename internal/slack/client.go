// Package slack delivers a finished payload to an incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/biolume/mlbio-digest/internal/domain"
)

const (
	// DefaultTimeout is the default delivery timeout.
	DefaultTimeout = 20 * time.Second

	// maxErrorBody caps how much of a non-2xx response body is kept for the
	// delivery error.
	maxErrorBody = 2000
)

// Config holds configuration for webhook delivery.
type Config struct {
	// WebhookURL is the incoming-webhook endpoint. Treated as a secret.
	WebhookURL string

	// Timeout is the request timeout.
	Timeout time.Duration
}

// Client posts digest payloads to a webhook. Delivery is a single attempt;
// a failed post is reported, never retried.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a new webhook client.
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With().Str("component", "slack").Logger(),
	}
}

// Post sends payload as JSON to the webhook. Any status outside the 2xx
// range yields a *domain.DeliveryError carrying the status and a truncated
// response body.
func (c *Client) Post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w: %v", domain.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.NewDeliveryError(resp.StatusCode, string(respBody))
	}

	c.logger.Debug().Int("status", resp.StatusCode).Msg("payload delivered")
	return nil
}
