package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/geowarn/geowarn/internal/alert"
)

// smsMaxLen is the single-segment SMS length limit.
const smsMaxLen = 160

// SMSAdapter sends alerts through an HTTP carrier gateway.
type SMSAdapter struct {
	GatewayURL string
	APIKey     string
	From       string

	limiter *RateLimiter
	client  *http.Client
}

// NewSMSAdapter creates an SMS adapter with a sends-per-minute rate limit.
func NewSMSAdapter(gatewayURL, apiKey, from string, ratePerMinute int) *SMSAdapter {
	return &SMSAdapter{
		GatewayURL: gatewayURL,
		APIKey:     apiKey,
		From:       from,
		limiter:    NewRateLimiter(ratePerMinute),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SMSAdapter) Type() alert.Channel { return alert.ChannelSMS }

func (s *SMSAdapter) Validate() error {
	if s.GatewayURL == "" {
		return errors.New("sms: gateway url is required")
	}
	if s.From == "" {
		return errors.New("sms: from number is required")
	}
	return nil
}

func (s *SMSAdapter) Send(ctx context.Context, target string, msg Message) error {
	if !s.limiter.Allow() {
		slog.Warn("sms rate limit exceeded", "target", target)
		return ErrRateLimited
	}

	payload := map[string]string{
		"from": s.From,
		"to":   target,
		"body": truncateSMS(msg.Short),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sms: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sms: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms: gateway returned %d", resp.StatusCode)
	}
	return nil
}

// truncateSMS enforces the single-segment limit, marking truncation
// with an ellipsis.
func truncateSMS(text string) string {
	runes := []rune(text)
	if len(runes) <= smsMaxLen {
		return text
	}
	return string(runes[:smsMaxLen-3]) + "..."
}
