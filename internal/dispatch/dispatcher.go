// Package dispatch fans alert notifications out to contacts across the
// configured channels, isolating and aggregating per-channel failures.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/geowarn/geowarn/internal/alert"
	"github.com/geowarn/geowarn/internal/channel"
	"github.com/geowarn/geowarn/internal/metrics"
)

// defaultWorkers bounds the concurrent sends within one Dispatch call.
const defaultWorkers = 4

// channelOrder fixes the order in which a recipient's channels are
// attempted, so outcomes are deterministic.
var channelOrder = []alert.Channel{alert.ChannelEmail, alert.ChannelSMS, alert.ChannelWebhook}

// ChannelStats counts attempts and deliveries for one channel type.
type ChannelStats struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
}

// Outcome aggregates the result of one dispatch pass. FailedContacts
// lists recipients whose delivery failed on every channel they had
// configured.
type Outcome struct {
	Channels       map[alert.Channel]ChannelStats `json:"channels"`
	TotalContacts  int                            `json:"total_contacts"`
	FailedContacts []string                       `json:"failed_contacts"`
}

// Dispatcher sends notifications through registered channel adapters.
// Channel failures are collected, never raised: a failed send to one
// recipient must not block delivery to the rest.
type Dispatcher struct {
	registry *channel.Registry
	workers  int
}

// New creates a Dispatcher over the given adapter registry. workers
// bounds in-flight sends per dispatch call (default 4).
func New(registry *channel.Registry, workers int) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Dispatcher{registry: registry, workers: workers}
}

// outcomeBuilder accumulates results from concurrent sends.
type outcomeBuilder struct {
	mu      sync.Mutex
	outcome Outcome
}

func newOutcomeBuilder(totalContacts int) *outcomeBuilder {
	return &outcomeBuilder{outcome: Outcome{
		Channels:       make(map[alert.Channel]ChannelStats),
		TotalContacts:  totalContacts,
		FailedContacts: []string{},
	}}
}

func (b *outcomeBuilder) record(ch alert.Channel, delivered bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats := b.outcome.Channels[ch]
	stats.Attempted++
	if delivered {
		stats.Delivered++
	}
	b.outcome.Channels[ch] = stats
}

func (b *outcomeBuilder) fail(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outcome.FailedContacts = append(b.outcome.FailedContacts, name)
}

// Dispatch sends the alert to every contact on every channel the
// contact has an address for. Sends run concurrently with bounded
// fan-out; the returned Outcome is purely observational.
func (d *Dispatcher) Dispatch(ctx context.Context, a alert.Alert, contacts []alert.Contact) Outcome {
	msg := channel.Render(a)
	builder := newOutcomeBuilder(len(contacts))

	var wg sync.WaitGroup
	sem := make(chan struct{}, d.workers)

	for _, c := range contacts {
		wg.Add(1)
		sem <- struct{}{}
		go func(c alert.Contact) {
			defer wg.Done()
			defer func() { <-sem }()
			d.sendToContact(ctx, c, msg, builder)
		}(c)
	}
	wg.Wait()

	return builder.outcome
}

func (d *Dispatcher) sendToContact(ctx context.Context, c alert.Contact, msg channel.Message, builder *outcomeBuilder) {
	attempted := 0
	delivered := 0

	for _, chType := range channelOrder {
		target, ok := c.Address(chType)
		if !ok {
			continue
		}
		adapter, ok := d.registry.Get(chType)
		if !ok {
			continue
		}

		attempted++
		if d.send(ctx, adapter, target, msg) {
			delivered++
			builder.record(chType, true)
		} else {
			builder.record(chType, false)
		}
	}

	if attempted > 0 && delivered == 0 {
		builder.fail(c.Name)
	}
}

// send invokes one adapter, translating errors into a boolean so the
// caller aggregates rather than propagates.
func (d *Dispatcher) send(ctx context.Context, adapter channel.Adapter, target string, msg channel.Message) bool {
	err := adapter.Send(ctx, target, msg)
	switch {
	case err == nil:
		metrics.NotificationsTotal.WithLabelValues(string(adapter.Type()), "delivered").Inc()
		return true
	case errors.Is(err, channel.ErrRateLimited):
		metrics.NotificationsTotal.WithLabelValues(string(adapter.Type()), "rate_limited").Inc()
		return false
	default:
		metrics.NotificationsTotal.WithLabelValues(string(adapter.Type()), "failed").Inc()
		slog.Error("notification send failed", "channel", adapter.Type(), "target", target, "error", err)
		return false
	}
}

// DispatchToPreferences sends the alert to users according to their
// notification preferences: only enabled channels, only when the alert
// severity passes the user's filter.
func (d *Dispatcher) DispatchToPreferences(ctx context.Context, a alert.Alert, prefs []Preference) Outcome {
	msg := channel.Render(a)
	builder := newOutcomeBuilder(0)

	var wg sync.WaitGroup
	sem := make(chan struct{}, d.workers)

	for _, p := range prefs {
		if !p.Wants(a.Severity) {
			continue
		}
		builder.outcome.TotalContacts++

		wg.Add(1)
		sem <- struct{}{}
		go func(p Preference) {
			defer wg.Done()
			defer func() { <-sem }()

			attempted := 0
			delivered := 0
			for _, cc := range p.Channels {
				if !cc.Enabled || cc.Address == "" {
					continue
				}
				adapter, ok := d.registry.Get(cc.Type)
				if !ok {
					slog.Warn("preference references unknown channel", "user", p.UserID, "channel", cc.Type)
					continue
				}
				attempted++
				if d.send(ctx, adapter, cc.Address, msg) {
					delivered++
					builder.record(cc.Type, true)
				} else {
					builder.record(cc.Type, false)
				}
			}
			if attempted > 0 && delivered == 0 {
				builder.fail(p.UserID)
			}
		}(p)
	}
	wg.Wait()

	return builder.outcome
}

// TestChannels pushes a single diagnostic message through each channel
// that has a target supplied, reporting per-channel success. Used to
// verify channel configuration.
func (d *Dispatcher) TestChannels(ctx context.Context, email, phone, webhookURL string) map[alert.Channel]bool {
	msg := channel.TestMessage()
	targets := map[alert.Channel]string{
		alert.ChannelEmail:   email,
		alert.ChannelSMS:     phone,
		alert.ChannelWebhook: webhookURL,
	}

	results := make(map[alert.Channel]bool)
	for _, chType := range channelOrder {
		target := targets[chType]
		if target == "" {
			continue
		}
		adapter, ok := d.registry.Get(chType)
		if !ok {
			results[chType] = false
			continue
		}
		results[chType] = d.send(ctx, adapter, target, msg)
	}
	return results
}
