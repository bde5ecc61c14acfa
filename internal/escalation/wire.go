package escalation

import (
	"time"

	"github.com/geowarn/geowarn/internal/alert"
	"github.com/geowarn/geowarn/internal/config"
)

var levelNames = map[string]Level{
	"level_1": Level1,
	"level_2": Level2,
	"level_3": Level3,
	"level_4": Level4,
}

// DirectoryFromConfig builds the contact directory from config. An
// empty contacts section falls back to the built-in chain.
func DirectoryFromConfig(cfg config.Config) *Directory {
	if len(cfg.Contacts) == 0 {
		return DefaultDirectory()
	}

	contacts := make(map[Level][]alert.Contact, len(cfg.Contacts))
	for name, entries := range cfg.Contacts {
		level, ok := levelNames[name]
		if !ok {
			continue // Validate already rejected unknown levels
		}
		for _, e := range entries {
			addrs := make(map[alert.Channel]string)
			if e.Email != "" {
				addrs[alert.ChannelEmail] = e.Email
			}
			if e.Phone != "" {
				addrs[alert.ChannelSMS] = e.Phone
			}
			if e.WebhookURL != "" {
				addrs[alert.ChannelWebhook] = e.WebhookURL
			}
			contacts[level] = append(contacts[level], alert.Contact{
				Name:      e.Name,
				Role:      e.Role,
				Addresses: addrs,
			})
		}
	}
	return NewDirectory(contacts)
}

// TimeoutOverrides converts the config's per-severity timeout minutes
// into durations for the policy registry.
func TimeoutOverrides(cfg config.Config) map[alert.Severity]time.Duration {
	out := make(map[alert.Severity]time.Duration, len(cfg.Escalation.TimeoutMinutes))
	for sev, minutes := range cfg.Escalation.TimeoutMinutes {
		out[alert.Severity(sev)] = time.Duration(minutes) * time.Minute
	}
	return out
}

// AutoEscalateOverrides converts the config's per-severity
// auto-escalate flags for the policy registry.
func AutoEscalateOverrides(cfg config.Config) map[alert.Severity]bool {
	out := make(map[alert.Severity]bool, len(cfg.Escalation.AutoEscalate))
	for sev, auto := range cfg.Escalation.AutoEscalate {
		out[alert.Severity(sev)] = auto
	}
	return out
}
