// Package metrics defines the sink abstraction through which dispatch
// lifecycle events reach external observability backends.
package metrics

import (
	"github.com/aapatcall/roadassist/core/events"
)

// Sink records dispatch lifecycle events for observability purposes.
type Sink interface {
	RecordOffer(ev events.OfferEvent) error
	RecordClaim(ev events.ClaimEvent) error
	RecordDecline(ev events.DeclineEvent) error
	RecordExhausted(ev events.ExhaustedEvent) error
}

// CancelRecorder is implemented by sinks that also track cancellations.
type CancelRecorder interface {
	RecordCancel(ev events.CancelEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordOffer(events.OfferEvent) error         { return nil }
func (NopSink) RecordClaim(events.ClaimEvent) error         { return nil }
func (NopSink) RecordDecline(events.DeclineEvent) error     { return nil }
func (NopSink) RecordExhausted(events.ExhaustedEvent) error { return nil }
