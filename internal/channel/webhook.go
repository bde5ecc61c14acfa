package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/geowarn/geowarn/internal/alert"
)

// WebhookAdapter posts alerts as JSON to external endpoints.
type WebhookAdapter struct {
	Timeout time.Duration

	limiter *RateLimiter
	client  *http.Client
}

// NewWebhookAdapter creates a webhook adapter with the given request
// timeout (10s if zero) and a sends-per-minute rate limit.
func NewWebhookAdapter(timeout time.Duration, ratePerMinute int) *WebhookAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookAdapter{
		Timeout: timeout,
		limiter: NewRateLimiter(ratePerMinute),
		client:  &http.Client{Timeout: timeout},
	}
}

func (w *WebhookAdapter) Type() alert.Channel { return alert.ChannelWebhook }

func (w *WebhookAdapter) Validate() error { return nil }

func (w *WebhookAdapter) Send(ctx context.Context, target string, msg Message) error {
	if !w.limiter.Allow() {
		slog.Warn("webhook rate limit exceeded", "target", target)
		return ErrRateLimited
	}

	body, err := json.Marshal(w.payload(msg))
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "geowarn/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (w *WebhookAdapter) payload(msg Message) map[string]interface{} {
	if msg.Alert == nil {
		return map[string]interface{}{
			"test":      true,
			"message":   msg.Body,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
	}

	a := msg.Alert
	return map[string]interface{}{
		"event_type": "alert_escalation",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"alert": map[string]interface{}{
			"id":         a.ID,
			"site_id":    a.SiteID,
			"title":      a.Title,
			"message":    a.Message,
			"severity":   a.Severity,
			"created_at": a.CreatedAt.UTC().Format(time.RFC3339),
		},
		"system": map[string]interface{}{
			"name":    "geowarn",
			"version": "1.0.0",
		},
	}
}

// BuildRegistry wires all configured adapters into a registry. Adapters
// that fail validation are skipped with a warning so one bad channel
// never takes down the others.
func BuildRegistry(adapters ...Adapter) *Registry {
	reg := NewRegistry()
	for _, a := range adapters {
		if err := a.Validate(); err != nil {
			slog.Warn("skipping misconfigured channel adapter", "channel", a.Type(), "error", err)
			continue
		}
		reg.Register(a)
	}
	return reg
}
