package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/geowarn/geowarn/internal/alert"
)

func TestPolicyRegistry_Defaults(t *testing.T) {
	reg := NewPolicyRegistry(nil, nil)

	low := reg.RuleFor(alert.SeverityLow)
	assert.Equal(t, Level1, low.InitialLevel)
	assert.Equal(t, Level2, low.MaxLevel)
	assert.Equal(t, 60*time.Minute, low.Timeout)
	assert.False(t, low.RequireAck)

	high := reg.RuleFor(alert.SeverityHigh)
	assert.Equal(t, Level4, high.MaxLevel)
	assert.Equal(t, 15*time.Minute, high.Timeout)
	assert.True(t, high.RequireAck)

	critical := reg.RuleFor(alert.SeverityCritical)
	assert.Equal(t, 5*time.Minute, critical.Timeout)
	assert.Equal(t, Level4, critical.MaxLevel)
}

func TestPolicyRegistry_UnknownSeverityFallsBackToMedium(t *testing.T) {
	reg := NewPolicyRegistry(nil, nil)

	got := reg.RuleFor(alert.Severity("bogus"))
	assert.Equal(t, reg.RuleFor(alert.SeverityMedium), got)
}

func TestPolicyRegistry_TimeoutOverrides(t *testing.T) {
	reg := NewPolicyRegistry(map[alert.Severity]time.Duration{
		alert.SeverityHigh: 2 * time.Minute,
		alert.SeverityLow:  -5 * time.Minute, // ignored
	}, nil)

	assert.Equal(t, 2*time.Minute, reg.RuleFor(alert.SeverityHigh).Timeout)
	assert.Equal(t, 60*time.Minute, reg.RuleFor(alert.SeverityLow).Timeout)
}

func TestPolicyRegistry_AutoEscalateOverrides(t *testing.T) {
	reg := NewPolicyRegistry(nil, map[alert.Severity]bool{
		alert.SeverityLow:             false,
		alert.Severity("nonexistent"): false, // ignored
	})

	assert.False(t, reg.RuleFor(alert.SeverityLow).AutoEscalate)
	assert.True(t, reg.RuleFor(alert.SeverityHigh).AutoEscalate)
	assert.True(t, reg.RuleFor(alert.SeverityMedium).AutoEscalate)
}

func TestLevel_Next(t *testing.T) {
	next, ok := Level1.Next()
	assert.True(t, ok)
	assert.Equal(t, Level2, next)

	_, ok = Level4.Next()
	assert.False(t, ok)
}

func TestLevel_JSON(t *testing.T) {
	b, err := Level3.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `"level_3"`, string(b))
}
