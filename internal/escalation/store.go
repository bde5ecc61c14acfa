package escalation

import (
	"errors"
	"sync"
	"time"

	"github.com/geowarn/geowarn/internal/alert"
	"github.com/geowarn/geowarn/internal/dispatch"
)

// ErrAlreadyActive is returned by Initiate when an unresolved
// escalation already exists for the alert. The caller should
// acknowledge or resolve the existing escalation instead of retrying.
var ErrAlreadyActive = errors.New("escalation: already active for alert")

// Acknowledgment records one person taking notice of an escalation.
type Acknowledgment struct {
	AcknowledgedBy string    `json:"acknowledged_by"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
	LevelAtAck     Level     `json:"level_at_ack"`
}

// Audience values for DispatchRecord: the level's contact chain, or
// the users subscribed through notification preferences.
const (
	AudienceDirectory   = "directory"
	AudienceSubscribers = "subscribers"
)

// DispatchRecord is one audit-trail entry: a notification pass to one
// audience at one level.
type DispatchRecord struct {
	ID        string           `json:"id"`
	Level     Level            `json:"level"`
	Audience  string           `json:"audience"`
	Timestamp time.Time        `json:"timestamp"`
	Outcome   dispatch.Outcome `json:"outcome"`
}

// activeEscalation is the mutable per-alert record. All access goes
// through its mutex; the acknowledgment and dispatch lists are
// append-only, and once resolved the record never changes again.
type activeEscalation struct {
	mu sync.Mutex

	alert           alert.Alert
	rule            Rule
	currentLevel    Level
	startedAt       time.Time
	lastEscalatedAt time.Time
	acks            []Acknowledgment
	dispatches      []DispatchRecord
	resolved        bool
	resolvedAt      time.Time
	resolvedBy      string
}

// ackAtOrAfter reports whether any acknowledgment was recorded at or
// after t. Caller must hold the record mutex.
func (e *activeEscalation) ackAtOrAfter(t time.Time) bool {
	for _, a := range e.acks {
		if !a.AcknowledgedAt.Before(t) {
			return true
		}
	}
	return false
}

// Store owns the active escalation records, one per open alert. The
// store map has its own lock; each record carries a per-alert mutex so
// mutations of different alerts proceed in parallel while mutations of
// the same alert are serialized.
type Store struct {
	mu      sync.RWMutex
	records map[string]*activeEscalation
}

// NewStore creates an empty escalation store.
func NewStore() *Store {
	return &Store{records: make(map[string]*activeEscalation)}
}

// create inserts a new record for the alert. It fails with
// ErrAlreadyActive when an unresolved record exists; a resolved record
// is replaced, since the previous incident is closed.
func (s *Store) create(a alert.Alert, rule Rule, now time.Time) (*activeEscalation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[a.ID]; ok {
		existing.mu.Lock()
		resolved := existing.resolved
		existing.mu.Unlock()
		if !resolved {
			return nil, ErrAlreadyActive
		}
	}

	rec := &activeEscalation{
		alert:           a,
		rule:            rule,
		currentLevel:    rule.InitialLevel,
		startedAt:       now,
		lastEscalatedAt: now,
	}
	s.records[a.ID] = rec
	return rec, nil
}

// get returns the record for an alert, or nil.
func (s *Store) get(alertID string) *activeEscalation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[alertID]
}

// unresolved returns a snapshot of records not yet resolved. The
// records themselves are still live; callers must lock each one.
func (s *Store) unresolved() []*activeEscalation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*activeEscalation, 0, len(s.records))
	for _, rec := range s.records {
		rec.mu.Lock()
		resolved := rec.resolved
		rec.mu.Unlock()
		if !resolved {
			out = append(out, rec)
		}
	}
	return out
}

// ActiveCount returns the number of unresolved escalations.
func (s *Store) ActiveCount() int {
	return len(s.unresolved())
}
