package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geowarn/geowarn/internal/alert"
	"github.com/geowarn/geowarn/internal/config"
)

func TestDirectoryFromConfig_EmptyUsesDefaults(t *testing.T) {
	d := DirectoryFromConfig(config.DefaultConfig())
	assert.NotEmpty(t, d.ContactsFor(Level1))
	assert.NotEmpty(t, d.ContactsFor(Level4))
}

func TestDirectoryFromConfig_BuildsContacts(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Contacts = map[string][]config.ContactConfig{
		"level_1": {
			{Name: "Ops", Role: "Operator", Email: "ops@x.com", Phone: "+1"},
		},
		"level_2": {
			{Name: "Hook", Role: "System", WebhookURL: "https://hooks.example.com/a"},
		},
	}

	d := DirectoryFromConfig(cfg)

	l1 := d.ContactsFor(Level1)
	require.Len(t, l1, 1)
	assert.Equal(t, "Ops", l1[0].Name)

	addr, ok := l1[0].Address(alert.ChannelEmail)
	require.True(t, ok)
	assert.Equal(t, "ops@x.com", addr)
	_, ok = l1[0].Address(alert.ChannelWebhook)
	assert.False(t, ok)

	l2 := d.ContactsFor(Level2)
	require.Len(t, l2, 1)
	addr, ok = l2[0].Address(alert.ChannelWebhook)
	require.True(t, ok)
	assert.Equal(t, "https://hooks.example.com/a", addr)

	assert.Empty(t, d.ContactsFor(Level3))
}

func TestTimeoutOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Escalation.TimeoutMinutes = map[string]int{"high": 7}

	got := TimeoutOverrides(cfg)
	assert.Equal(t, 7*time.Minute, got[alert.SeverityHigh])
	assert.Len(t, got, 1)
}

func TestAutoEscalateOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Escalation.AutoEscalate = map[string]bool{"low": false}

	got := AutoEscalateOverrides(cfg)
	assert.Equal(t, map[alert.Severity]bool{alert.SeverityLow: false}, got)
}
