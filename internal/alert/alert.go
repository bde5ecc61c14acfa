package alert

import "time"

// Severity classifies how dangerous an alert is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid reports whether s is one of the known severities.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Channel identifies a notification medium.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelWebhook Channel = "webhook"
)

// Alert is a safety-critical event produced by the alerting pipeline.
// This service only consumes alerts; it never creates them.
type Alert struct {
	ID        string    `json:"id"`
	SiteID    string    `json:"site_id"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Contact is a person reachable on one or more channels. A contact may
// lack an address for some channels.
type Contact struct {
	Name      string             `json:"name"`
	Role      string             `json:"role"`
	Addresses map[Channel]string `json:"addresses"`
}

// Address returns the contact's address for the given channel, if any.
func (c Contact) Address(ch Channel) (string, bool) {
	addr, ok := c.Addresses[ch]
	return addr, ok && addr != ""
}
