package escalation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/geowarn/geowarn/internal/alert"
	"github.com/geowarn/geowarn/internal/dispatch"
	"github.com/geowarn/geowarn/internal/metrics"
)

// Dispatcher is the slice of the notification dispatcher the manager
// needs. Dispatch outcomes are purely observational: a failed dispatch
// never rolls back a state transition.
type Dispatcher interface {
	Dispatch(ctx context.Context, a alert.Alert, contacts []alert.Contact) dispatch.Outcome
	DispatchToPreferences(ctx context.Context, a alert.Alert, prefs []dispatch.Preference) dispatch.Outcome
}

// PreferenceSource lists the users who subscribed to alert
// notifications; they are notified alongside the level directory on
// every notification pass.
type PreferenceSource interface {
	All() []dispatch.Preference
}

// Manager owns the escalation state machine. All mutations of a given
// escalation are serialized through its record mutex; operations on
// different alerts run in parallel.
type Manager struct {
	policies   *PolicyRegistry
	directory  *Directory
	store      *Store
	dispatcher Dispatcher
	prefs      PreferenceSource // may be nil

	now func() time.Time
}

// NewManager wires the state machine to its collaborators. prefs may be
// nil when no subscriber notifications are wanted.
func NewManager(policies *PolicyRegistry, directory *Directory, store *Store, dispatcher Dispatcher, prefs PreferenceSource) *Manager {
	return &Manager{
		policies:   policies,
		directory:  directory,
		store:      store,
		dispatcher: dispatcher,
		prefs:      prefs,
		now:        time.Now,
	}
}

// InitiationResult reports the outcome of starting an escalation.
type InitiationResult struct {
	AlertID          string        `json:"alert_id"`
	Level            Level         `json:"level"`
	ContactsNotified int           `json:"contacts_notified"`
	NextEscalationIn time.Duration `json:"-"`
}

// Initiate creates the escalation for an alert at its rule's initial
// level and notifies that level's contacts. Critical alerts fan out to
// every remaining level immediately, ending at the rule's max level.
// Fails with ErrAlreadyActive when an unresolved escalation exists.
func (m *Manager) Initiate(ctx context.Context, a alert.Alert) (InitiationResult, error) {
	rule := m.policies.RuleFor(a.Severity)

	rec, err := m.store.create(a, rule, m.now())
	if err != nil {
		return InitiationResult{}, err
	}
	metrics.ActiveEscalations.Inc()

	notified := len(m.directory.ContactsFor(rule.InitialLevel))
	m.notifyLevel(ctx, rec, a, rule.InitialLevel)

	finalLevel := rule.InitialLevel
	if a.Severity == alert.SeverityCritical {
		// Fast path: notify every remaining level now instead of
		// climbing one rung per timeout. A resolve landing mid-fan-out
		// stops the climb; the record is frozen at whatever level it
		// held when the resolve was recorded.
		for lvl, ok := rule.InitialLevel.Next(); ok && lvl <= rule.MaxLevel; lvl, ok = lvl.Next() {
			rec.mu.Lock()
			if rec.resolved {
				rec.mu.Unlock()
				break
			}
			rec.mu.Unlock()
			notified += len(m.directory.ContactsFor(lvl))
			m.notifyLevel(ctx, rec, a, lvl)
			finalLevel = lvl
		}
		rec.mu.Lock()
		if !rec.resolved {
			rec.currentLevel = finalLevel
		}
		finalLevel = rec.currentLevel
		rec.mu.Unlock()
		slog.Info("critical alert escalated to all levels", "alert_id", a.ID, "level", finalLevel)
	}

	m.notifySubscribers(ctx, rec, a, finalLevel)

	slog.Info("escalation initiated", "alert_id", a.ID, "severity", a.Severity, "level", finalLevel)
	return InitiationResult{
		AlertID:          a.ID,
		Level:            finalLevel,
		ContactsNotified: notified,
		NextEscalationIn: rule.Timeout,
	}, nil
}

// Acknowledge appends an acknowledgment to the alert's escalation.
// Returns false when no active escalation exists; acknowledging an
// unknown or resolved alert is a no-op, not an error.
func (m *Manager) Acknowledge(alertID, who string) bool {
	rec := m.store.get(alertID)
	if rec == nil {
		slog.Warn("acknowledge: no active escalation", "alert_id", alertID)
		return false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.resolved {
		return false
	}

	rec.acks = append(rec.acks, Acknowledgment{
		AcknowledgedBy: who,
		AcknowledgedAt: m.now(),
		LevelAtAck:     rec.currentLevel,
	})
	slog.Info("escalation acknowledged", "alert_id", alertID, "by", who, "level", rec.currentLevel)
	return true
}

// Resolve marks the escalation resolved, freezing its state. Idempotent:
// resolving an already-resolved or unknown alert returns false.
func (m *Manager) Resolve(alertID, who string) bool {
	rec := m.store.get(alertID)
	if rec == nil {
		slog.Warn("resolve: no active escalation", "alert_id", alertID)
		return false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.resolved {
		return false
	}

	rec.resolved = true
	rec.resolvedAt = m.now()
	rec.resolvedBy = who
	metrics.ActiveEscalations.Dec()
	slog.Info("escalation resolved", "alert_id", alertID, "by", who, "level", rec.currentLevel)
	return true
}

// Advance reports one timeout-driven level change from a Tick pass.
type Advance struct {
	AlertID     string    `json:"alert_id"`
	EscalatedTo Level     `json:"escalated_to"`
	Timestamp   time.Time `json:"timestamp"`
}

// Tick evaluates every unresolved escalation against its rule's timeout
// and advances the ones that are due. A panic while handling one
// escalation is contained so the rest of the pass still runs.
func (m *Manager) Tick(ctx context.Context, now time.Time) []Advance {
	var advanced []Advance
	for _, rec := range m.store.unresolved() {
		if adv := m.tickOne(ctx, rec, now); adv != nil {
			advanced = append(advanced, *adv)
		}
	}
	return advanced
}

func (m *Manager) tickOne(ctx context.Context, rec *activeEscalation, now time.Time) (adv *Advance) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while ticking escalation", "alert_id", rec.alert.ID, "panic", r)
			adv = nil
		}
	}()

	rec.mu.Lock()
	rule := rec.rule
	switch {
	case rec.resolved,
		!rule.AutoEscalate,
		now.Sub(rec.lastEscalatedAt) < rule.Timeout:
		rec.mu.Unlock()
		return nil
	case rec.currentLevel >= rule.MaxLevel:
		// Topped out: stays active awaiting manual resolution.
		rec.mu.Unlock()
		return nil
	case rule.RequireAck && rec.ackAtOrAfter(rec.lastEscalatedAt):
		// Acknowledgment wins over the timeout.
		rec.mu.Unlock()
		return nil
	}

	next, ok := rec.currentLevel.Next()
	if !ok {
		rec.mu.Unlock()
		return nil
	}

	// The advancement is recorded first; dispatch is observational and
	// must not block or fail the transition.
	rec.currentLevel = next
	rec.lastEscalatedAt = now
	a := rec.alert
	rec.mu.Unlock()

	metrics.EscalationsAdvanced.Inc()
	slog.Info("escalation advanced", "alert_id", a.ID, "level", next)
	m.notifyLevel(ctx, rec, a, next)
	m.notifySubscribers(ctx, rec, a, next)

	return &Advance{AlertID: a.ID, EscalatedTo: next, Timestamp: now}
}

// notifyLevel dispatches to one level's contacts and appends the audit
// record. Dispatch failures surface in the outcome, never as errors.
func (m *Manager) notifyLevel(ctx context.Context, rec *activeEscalation, a alert.Alert, level Level) {
	outcome := m.dispatcher.Dispatch(ctx, a, m.directory.ContactsFor(level))
	if len(outcome.FailedContacts) > 0 {
		slog.Error("some contacts could not be notified",
			"alert_id", a.ID, "level", level, "failed", outcome.FailedContacts)
	}
	m.appendDispatch(rec, DispatchRecord{
		ID:        uuid.NewString(),
		Level:     level,
		Audience:  AudienceDirectory,
		Timestamp: m.now(),
		Outcome:   outcome,
	})
}

// notifySubscribers dispatches to users who opted in through
// notification preferences. Runs once per notification pass, so a
// critical fan-out does not repeat it for every level.
func (m *Manager) notifySubscribers(ctx context.Context, rec *activeEscalation, a alert.Alert, level Level) {
	if m.prefs == nil {
		return
	}
	prefs := m.prefs.All()
	if len(prefs) == 0 {
		return
	}
	rec.mu.Lock()
	resolved := rec.resolved
	rec.mu.Unlock()
	if resolved {
		return
	}

	outcome := m.dispatcher.DispatchToPreferences(ctx, a, prefs)
	if len(outcome.FailedContacts) > 0 {
		slog.Error("some subscribers could not be notified",
			"alert_id", a.ID, "level", level, "failed", outcome.FailedContacts)
	}
	m.appendDispatch(rec, DispatchRecord{
		ID:        uuid.NewString(),
		Level:     level,
		Audience:  AudienceSubscribers,
		Timestamp: m.now(),
		Outcome:   outcome,
	})
}

// appendDispatch adds the audit record unless the escalation resolved
// while the dispatch was in flight; a resolved record never changes.
func (m *Manager) appendDispatch(rec *activeEscalation, d DispatchRecord) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.resolved {
		slog.Debug("dropping dispatch record for resolved escalation",
			"alert_id", rec.alert.ID, "level", d.Level)
		return
	}
	rec.dispatches = append(rec.dispatches, d)
}

// Status is a read-only projection of an escalation record.
type Status struct {
	AlertID           string    `json:"alert_id"`
	Level             Level     `json:"current_level"`
	StartedAt         time.Time `json:"started_at"`
	LastEscalatedAt   time.Time `json:"last_escalated_at"`
	AckCount          int       `json:"acknowledgment_count"`
	DispatchCount     int       `json:"dispatch_count"`
	Resolved          bool      `json:"resolved"`
	ResolvedBy        string    `json:"resolved_by,omitempty"`
	TimeActiveSeconds int       `json:"time_active_seconds"`
}

// StatusOf returns a value snapshot of the alert's escalation, or
// ok=false when none exists.
func (m *Manager) StatusOf(alertID string) (Status, bool) {
	rec := m.store.get(alertID)
	if rec == nil {
		return Status{}, false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	until := m.now()
	if rec.resolved {
		until = rec.resolvedAt
	}
	return Status{
		AlertID:           rec.alert.ID,
		Level:             rec.currentLevel,
		StartedAt:         rec.startedAt,
		LastEscalatedAt:   rec.lastEscalatedAt,
		AckCount:          len(rec.acks),
		DispatchCount:     len(rec.dispatches),
		Resolved:          rec.resolved,
		ResolvedBy:        rec.resolvedBy,
		TimeActiveSeconds: int(until.Sub(rec.startedAt).Seconds()),
	}, true
}

// ActiveCount returns the number of unresolved escalations.
func (m *Manager) ActiveCount() int {
	return m.store.ActiveCount()
}
