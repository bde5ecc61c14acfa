package dispatch

import (
	"sync"

	"github.com/geowarn/geowarn/internal/alert"
)

// ChannelConfig is one channel entry in a user's notification
// preferences.
type ChannelConfig struct {
	Type    alert.Channel `json:"type"`
	Enabled bool          `json:"enabled"`
	Address string        `json:"address"`
}

// Preference is a user's notification preference record, consumed from
// the user-facing API. The alert must match the severity filter for
// any channel to fire.
type Preference struct {
	UserID         string           `json:"user_id"`
	Channels       []ChannelConfig  `json:"channels"`
	SeverityFilter []alert.Severity `json:"severity_filter"`
}

// Wants reports whether the preference's severity filter admits the
// given severity. An empty filter admits nothing.
func (p Preference) Wants(s alert.Severity) bool {
	for _, f := range p.SeverityFilter {
		if f == s {
			return true
		}
	}
	return false
}

// PreferenceStore holds per-user notification preferences in memory.
type PreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]Preference
}

// NewPreferenceStore creates an empty preference store.
func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{prefs: make(map[string]Preference)}
}

// Set stores or replaces the preference for pref.UserID.
func (s *PreferenceStore) Set(pref Preference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[pref.UserID] = pref
}

// Get returns the preference for a user.
func (s *PreferenceStore) Get(userID string) (Preference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[userID]
	return p, ok
}

// All returns a snapshot of every stored preference.
func (s *PreferenceStore) All() []Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Preference, 0, len(s.prefs))
	for _, p := range s.prefs {
		out = append(out, p)
	}
	return out
}
