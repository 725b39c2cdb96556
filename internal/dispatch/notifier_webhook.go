// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/vigil/internal/logging"
)

// WebhookConfig configures the outbound webhook alert sink.
type WebhookConfig struct {
	URL string `json:"url"`

	// Headers are sent with every request (e.g. authorization).
	Headers map[string]string `json:"headers,omitempty"`

	Enabled bool `json:"enabled"`

	// RateLimitPerSecond caps outbound posts; excess alerts are dropped,
	// not queued. Default: 2.
	RateLimitPerSecond float64 `json:"rate_limit_per_second"`

	// Timeout bounds each delivery attempt. Default: 10s.
	Timeout time.Duration `json:"timeout"`
}

// WebhookNotifier posts alert payloads to an external endpoint. Delivery is
// best effort: a tripped breaker or exhausted rate budget drops the alert
// with a log line and never surfaces an error to the ingest path.
type WebhookNotifier struct {
	url     string
	headers map[string]string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
	enabled bool
}

// NewWebhookNotifier creates a notifier from config.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	perSecond := cfg.RateLimitPerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "alert-webhook",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("webhook breaker state changed")
		},
	})

	return &WebhookNotifier{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		breaker: breaker,
		enabled: cfg.Enabled,
	}
}

// Enabled reports whether the notifier will attempt deliveries.
func (n *WebhookNotifier) Enabled() bool {
	return n != nil && n.enabled && n.url != ""
}

// Notify posts one alert payload. Failures are returned for logging but
// callers treat delivery as best effort.
func (n *WebhookNotifier) Notify(ctx context.Context, payload AlertPayload) error {
	if !n.Enabled() {
		return nil
	}
	if !n.limiter.Allow() {
		logging.Debug().Str("alert_id", payload.AlertID).Msg("webhook rate budget exhausted, dropping alert")
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	_, err = n.breaker.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, fmt.Errorf("build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range n.headers {
			req.Header.Set(k, v)
		}

		resp, err := n.client.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("post webhook: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return struct{}{}, fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	return err
}
