// Package channel implements the per-medium notification senders.
package channel

import (
	"context"
	"errors"

	"github.com/geowarn/geowarn/internal/alert"
)

// ErrRateLimited is returned by Send when the adapter's sliding-window
// rate limit rejects the attempt. Callers treat it like any other
// delivery failure; nothing is queued.
var ErrRateLimited = errors.New("channel: rate limit exceeded")

// Adapter is the interface every notification channel must satisfy.
type Adapter interface {
	// Type returns the channel type identifier (e.g., "email", "sms").
	Type() alert.Channel

	// Send delivers a rendered message to a single target address.
	// It returns an error if delivery fails; it never retries.
	Send(ctx context.Context, target string, msg Message) error

	// Validate checks whether the adapter configuration is usable.
	Validate() error
}

// Registry maps channel types to their adapters so callers stay
// channel-agnostic.
type Registry struct {
	adapters map[alert.Channel]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[alert.Channel]Adapter)}
}

// Register adds an adapter, replacing any previous adapter of the same type.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Type()] = a
}

// Get returns the adapter for the given channel type.
func (r *Registry) Get(t alert.Channel) (Adapter, bool) {
	a, ok := r.adapters[t]
	return a, ok
}

// Types returns the registered channel types.
func (r *Registry) Types() []alert.Channel {
	out := make([]alert.Channel, 0, len(r.adapters))
	for t := range r.adapters {
		out = append(out, t)
	}
	return out
}
