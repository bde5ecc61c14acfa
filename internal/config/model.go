package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const CurrentConfigVersion = 1

// Config is the root configuration structure persisted in config.json.
type Config struct {
	Version    int                        `json:"version"`
	System     SystemConfig               `json:"system"`
	Auth       AuthConfig                 `json:"auth"`
	Channels   ChannelsConfig             `json:"channels"`
	Escalation EscalationConfig           `json:"escalation"`
	Contacts   map[string][]ContactConfig `json:"contacts"` // keyed by level_1 .. level_4
}

type SystemConfig struct {
	BindAddress     string `json:"bind_address"`
	PollInterval    int    `json:"poll_interval"` // scheduler pass interval, seconds
	DispatchWorkers int    `json:"dispatch_workers"`
	LogLevel        string `json:"log_level"`
}

// AuthConfig holds the API bearer-token credential. The token itself is
// never stored; only its bcrypt hash. An empty hash disables auth.
type AuthConfig struct {
	APITokenHash string `json:"api_token_hash"`
}

type ChannelsConfig struct {
	Email   EmailConfig   `json:"email"`
	SMS     SMSConfig     `json:"sms"`
	Webhook WebhookConfig `json:"webhook"`
}

type EmailConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
	Password      string `json:"password,omitempty"`
	From          string `json:"from"`
	RatePerMinute int    `json:"rate_per_minute"`
}

type SMSConfig struct {
	GatewayURL    string `json:"gateway_url"`
	APIKey        string `json:"api_key,omitempty"`
	From          string `json:"from"`
	RatePerMinute int    `json:"rate_per_minute"`
}

type WebhookConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	RatePerMinute  int `json:"rate_per_minute"`
}

// EscalationConfig overrides the built-in per-severity escalation
// policy. TimeoutMinutes replaces the timeout for the named severities;
// AutoEscalate set to false makes a severity escalate only manually.
type EscalationConfig struct {
	TimeoutMinutes map[string]int  `json:"timeout_minutes,omitempty"`
	AutoEscalate   map[string]bool `json:"auto_escalate,omitempty"`
}

// ContactConfig is one directory entry. A contact may have any subset
// of addresses.
type ContactConfig struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

// DefaultConfig returns a config with sensible defaults. The contact
// directory is left empty so the built-in chain applies.
func DefaultConfig() Config {
	return Config{
		Version: CurrentConfigVersion,
		System: SystemConfig{
			BindAddress:     ":8080",
			PollInterval:    30,
			DispatchWorkers: 4,
			LogLevel:        "info",
		},
		Channels: ChannelsConfig{
			Email: EmailConfig{
				Host:          "smtp.example.com",
				Port:          587,
				RatePerMinute: 10,
			},
			SMS: SMSConfig{
				RatePerMinute: 10,
			},
			Webhook: WebhookConfig{
				TimeoutSeconds: 10,
				RatePerMinute:  10,
			},
		},
		Contacts: make(map[string][]ContactConfig),
	}
}

// ApplyDefaults fills zero-value fields with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.System.BindAddress == "" {
		c.System.BindAddress = d.System.BindAddress
	}
	if c.System.PollInterval <= 0 {
		c.System.PollInterval = d.System.PollInterval
	}
	if c.System.DispatchWorkers <= 0 {
		c.System.DispatchWorkers = d.System.DispatchWorkers
	}
	if c.System.LogLevel == "" {
		c.System.LogLevel = d.System.LogLevel
	}
	if c.Channels.Email.Port <= 0 {
		c.Channels.Email.Port = d.Channels.Email.Port
	}
	if c.Channels.Email.RatePerMinute <= 0 {
		c.Channels.Email.RatePerMinute = d.Channels.Email.RatePerMinute
	}
	if c.Channels.SMS.RatePerMinute <= 0 {
		c.Channels.SMS.RatePerMinute = d.Channels.SMS.RatePerMinute
	}
	if c.Channels.Webhook.TimeoutSeconds <= 0 {
		c.Channels.Webhook.TimeoutSeconds = d.Channels.Webhook.TimeoutSeconds
	}
	if c.Channels.Webhook.RatePerMinute <= 0 {
		c.Channels.Webhook.RatePerMinute = d.Channels.Webhook.RatePerMinute
	}
	if c.Contacts == nil {
		c.Contacts = make(map[string][]ContactConfig)
	}
}

var validLevels = map[string]bool{
	"level_1": true, "level_2": true, "level_3": true, "level_4": true,
}

var validSeverities = map[string]bool{
	"low": true, "medium": true, "high": true, "critical": true,
}

// Validate checks the config for logical errors.
func (c *Config) Validate() error {
	var errs []string

	if c.System.PollInterval < 5 {
		errs = append(errs, "system.poll_interval must be >= 5 seconds")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.System.LogLevel] {
		errs = append(errs, fmt.Sprintf("system.log_level must be one of: debug, info, warn, error (got %q)", c.System.LogLevel))
	}

	for sev, minutes := range c.Escalation.TimeoutMinutes {
		if !validSeverities[sev] {
			errs = append(errs, fmt.Sprintf("escalation.timeout_minutes has unknown severity %q", sev))
		}
		if minutes <= 0 {
			errs = append(errs, fmt.Sprintf("escalation.timeout_minutes[%s] must be > 0", sev))
		}
	}

	for sev := range c.Escalation.AutoEscalate {
		if !validSeverities[sev] {
			errs = append(errs, fmt.Sprintf("escalation.auto_escalate has unknown severity %q", sev))
		}
	}

	for level, contacts := range c.Contacts {
		if !validLevels[level] {
			errs = append(errs, fmt.Sprintf("contacts has unknown level %q", level))
			continue
		}
		for i, contact := range contacts {
			prefix := fmt.Sprintf("contacts[%s][%d]", level, i)
			if contact.Name == "" {
				errs = append(errs, prefix+".name is required")
			}
			if contact.Email == "" && contact.Phone == "" && contact.WebhookURL == "" {
				errs = append(errs, prefix+" needs at least one of email, phone, webhook_url")
			}
			if contact.WebhookURL != "" {
				if u, err := url.Parse(contact.WebhookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
					errs = append(errs, prefix+".webhook_url must be a valid http(s) URL")
				}
			}
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
