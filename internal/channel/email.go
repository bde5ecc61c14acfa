package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/geowarn/geowarn/internal/alert"
)

// EmailAdapter sends alerts via an SMTP relay.
type EmailAdapter struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	limiter *RateLimiter

	// sendMail is swappable for tests; defaults to smtp.SendMail.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailAdapter creates an email adapter with a sends-per-minute rate limit.
func NewEmailAdapter(host string, port int, username, password, from string, ratePerMinute int) *EmailAdapter {
	return &EmailAdapter{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		limiter:  NewRateLimiter(ratePerMinute),
		sendMail: smtp.SendMail,
	}
}

func (e *EmailAdapter) Type() alert.Channel { return alert.ChannelEmail }

func (e *EmailAdapter) Validate() error {
	if e.Host == "" {
		return errors.New("email: smtp host is required")
	}
	if e.Port <= 0 {
		return errors.New("email: smtp port is required")
	}
	if e.From == "" {
		return errors.New("email: from address is required")
	}
	return nil
}

func (e *EmailAdapter) Send(ctx context.Context, target string, msg Message) error {
	if !e.limiter.Allow() {
		slog.Warn("email rate limit exceeded", "target", target)
		return ErrRateLimited
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("email: %w", err)
	}

	var auth smtp.Auth
	if e.Username != "" && e.Password != "" {
		auth = smtp.PlainAuth("", e.Username, e.Password, e.Host)
	}

	addr := fmt.Sprintf("%s:%d", e.Host, e.Port)
	if err := e.sendMail(addr, auth, e.From, []string{target}, e.buildMessage(target, msg)); err != nil {
		return fmt.Errorf("email: send to %s: %w", target, err)
	}
	return nil
}

// buildMessage renders the RFC 822 message, adding priority headers for
// high and critical severities so mail clients flag them.
func (e *EmailAdapter) buildMessage(target string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.From)
	fmt.Fprintf(&b, "To: %s\r\n", target)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	if msg.Priority == "high" {
		b.WriteString("X-Priority: 1\r\n")
		b.WriteString("Importance: High\r\n")
	}
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
