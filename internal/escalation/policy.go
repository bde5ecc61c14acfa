// Package escalation implements the alert escalation state machine:
// policy lookup, the per-alert escalation records, and the scheduler
// that advances unacknowledged escalations through the contact chain.
package escalation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/geowarn/geowarn/internal/alert"
)

// Level is a rung in the escalation chain, from site operators (L1) up
// to emergency contacts (L4).
type Level int

const (
	Level1 Level = iota + 1
	Level2
	Level3
	Level4
)

// maxLevel is the highest defined level.
const maxLevel = Level4

func (l Level) String() string {
	if l < Level1 || l > maxLevel {
		return fmt.Sprintf("level_%d", int(l))
	}
	return [...]string{"level_1", "level_2", "level_3", "level_4"}[l-1]
}

// MarshalJSON emits the level as its string form ("level_1" .. "level_4").
func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// Next returns the level above l, or l itself with ok=false when l is
// already the top level.
func (l Level) Next() (Level, bool) {
	if l >= maxLevel {
		return l, false
	}
	return l + 1, true
}

// Rule is the immutable per-severity escalation policy.
type Rule struct {
	Severity     alert.Severity
	InitialLevel Level
	Timeout      time.Duration // time allowed at a level before auto-advance
	MaxLevel     Level
	RequireAck   bool
	AutoEscalate bool
}

// PolicyRegistry maps severities to escalation rules. It is populated
// at construction and never mutated, so lookups are safe from any
// goroutine.
type PolicyRegistry struct {
	rules map[alert.Severity]Rule
}

// NewPolicyRegistry builds the registry with the default rules.
// timeoutOverrides (severity -> duration) replaces the default timeout
// for the named severities; zero or negative overrides are ignored.
// autoEscalate (severity -> bool) overrides whether the scheduler
// advances that severity on timeout; false makes escalation manual.
func NewPolicyRegistry(timeoutOverrides map[alert.Severity]time.Duration, autoEscalate map[alert.Severity]bool) *PolicyRegistry {
	rules := map[alert.Severity]Rule{
		alert.SeverityLow: {
			Severity:     alert.SeverityLow,
			InitialLevel: Level1,
			Timeout:      60 * time.Minute,
			MaxLevel:     Level2,
			RequireAck:   false,
			AutoEscalate: true,
		},
		alert.SeverityMedium: {
			Severity:     alert.SeverityMedium,
			InitialLevel: Level1,
			Timeout:      30 * time.Minute,
			MaxLevel:     Level3,
			RequireAck:   true,
			AutoEscalate: true,
		},
		alert.SeverityHigh: {
			Severity:     alert.SeverityHigh,
			InitialLevel: Level1,
			Timeout:      15 * time.Minute,
			MaxLevel:     Level4,
			RequireAck:   true,
			AutoEscalate: true,
		},
		alert.SeverityCritical: {
			Severity:     alert.SeverityCritical,
			InitialLevel: Level1,
			Timeout:      5 * time.Minute,
			MaxLevel:     Level4,
			RequireAck:   true,
			AutoEscalate: true,
		},
	}

	for sev, d := range timeoutOverrides {
		if d <= 0 {
			continue
		}
		if rule, ok := rules[sev]; ok {
			rule.Timeout = d
			rules[sev] = rule
		}
	}

	for sev, auto := range autoEscalate {
		if rule, ok := rules[sev]; ok {
			rule.AutoEscalate = auto
			rules[sev] = rule
		}
	}

	return &PolicyRegistry{rules: rules}
}

// RuleFor returns the rule for a severity, falling back to the medium
// rule for unrecognized severities. The fallback is logged so it stays
// observable.
func (r *PolicyRegistry) RuleFor(severity alert.Severity) Rule {
	rule, ok := r.rules[severity]
	if !ok {
		slog.Warn("no escalation rule for severity, falling back to medium", "severity", severity)
		return r.rules[alert.SeverityMedium]
	}
	return rule
}
