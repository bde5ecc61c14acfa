package channel

import (
	"fmt"
	"strings"
	"time"

	"github.com/geowarn/geowarn/internal/alert"
)

// Message is a rendered notification. Each adapter picks the fields it
// needs: email uses Subject/Body, SMS uses Short, webhook serializes
// the alert itself.
type Message struct {
	Alert    *alert.Alert // nil for diagnostic test sends
	Subject  string
	Body     string
	Short    string
	Priority string // "normal" or "high"
}

// Render builds the per-channel representations of an alert.
func Render(a alert.Alert) Message {
	sev := strings.ToUpper(string(a.Severity))

	priority := "normal"
	if a.Severity == alert.SeverityHigh || a.Severity == alert.SeverityCritical {
		priority = "high"
	}

	body := fmt.Sprintf(`ROCKFALL SAFETY ALERT

Alert ID: %s
Site: %s
Severity: %s

MESSAGE:
%s

Timestamp: %s

IMMEDIATE ACTIONS REQUIRED:
- Review the alert details in the monitoring dashboard
- Follow established safety protocols for %s level alerts
- Coordinate with on-site personnel if necessary
- Document any actions taken

This is an automated alert. Do not reply.
`, a.ID, a.SiteID, sev, a.Message, a.CreatedAt.UTC().Format(time.RFC3339), string(a.Severity))

	return Message{
		Alert:    &a,
		Subject:  fmt.Sprintf("[%s ALERT] %s", sev, a.Title),
		Body:     body,
		Short:    fmt.Sprintf("%s ALERT - %s: %s. Check dashboard immediately. Alert ID: %s", sev, a.SiteID, a.Title, a.ID),
		Priority: priority,
	}
}

// TestMessage builds the message used by the channel verification
// endpoint.
func TestMessage() Message {
	return Message{
		Subject:  "Test Notification",
		Body:     "This is a test notification from the rockfall alert escalation service.",
		Short:    "Test notification from the rockfall alert escalation service.",
		Priority: "normal",
	}
}
