package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.System.PollInterval)
	assert.Equal(t, 10, cfg.Channels.Email.RatePerMinute)
}

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, ":8080", cfg.System.BindAddress)
	assert.Equal(t, 4, cfg.System.DispatchWorkers)
	assert.Equal(t, 10, cfg.Channels.Webhook.TimeoutSeconds)
	assert.NotNil(t, cfg.Contacts)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "poll interval too small",
			mutate: func(c *Config) { c.System.PollInterval = 3 },
			want:   "poll_interval",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.System.LogLevel = "verbose" },
			want:   "log_level",
		},
		{
			name: "unknown severity in timeouts",
			mutate: func(c *Config) {
				c.Escalation.TimeoutMinutes = map[string]int{"urgent": 5}
			},
			want: "unknown severity",
		},
		{
			name: "unknown severity in auto escalate",
			mutate: func(c *Config) {
				c.Escalation.AutoEscalate = map[string]bool{"urgent": false}
			},
			want: "auto_escalate",
		},
		{
			name: "unknown contact level",
			mutate: func(c *Config) {
				c.Contacts = map[string][]ContactConfig{"level_9": {{Name: "x", Email: "x@x.com"}}}
			},
			want: "unknown level",
		},
		{
			name: "contact with no addresses",
			mutate: func(c *Config) {
				c.Contacts = map[string][]ContactConfig{"level_1": {{Name: "x"}}}
			},
			want: "at least one of",
		},
		{
			name: "bad webhook url",
			mutate: func(c *Config) {
				c.Contacts = map[string][]ContactConfig{"level_1": {{Name: "x", WebhookURL: "ftp://x"}}}
			},
			want: "webhook_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestManager_MissingFileUsesDefaults(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().System, m.Get().System)
}

func TestManager_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	cfg.System.PollInterval = 45
	cfg.Escalation.TimeoutMinutes = map[string]int{"high": 10}
	require.NoError(t, m.Save(cfg))

	m2, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, 45, m2.Get().System.PollInterval)
	assert.Equal(t, 10, m2.Get().Escalation.TimeoutMinutes["high"])
}

func TestManager_SaveRejectsInvalid(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	cfg := m.Get()
	cfg.System.PollInterval = 1
	assert.Error(t, m.Save(cfg))
}

func TestManager_SubscribeReceivesChange(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	ch := m.Subscribe()
	require.NoError(t, m.Save(m.Get()))

	select {
	case <-ch:
	default:
		t.Fatal("expected change notification")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEOWARN_SMTP_PASSWORD", "s3cret")
	t.Setenv("GEOWARN_API_TOKEN_HASH", "$2a$10$hash")

	path := filepath.Join(t.TempDir(), "config.json")
	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, "s3cret", cfg.Channels.Email.Password)
	assert.Equal(t, "$2a$10$hash", cfg.Auth.APITokenHash)

	// Saving a config without credentials keeps them out of the file
	// while the in-memory config retains the env values.
	cfg.Channels.Email.Password = ""
	cfg.Auth.APITokenHash = ""
	require.NoError(t, m.Save(cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
	assert.Equal(t, "s3cret", m.Get().Channels.Email.Password)
	assert.Equal(t, "$2a$10$hash", m.Get().Auth.APITokenHash)
}
