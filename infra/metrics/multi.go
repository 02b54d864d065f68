package metrics

import (
	"github.com/aapatcall/roadassist/core/events"
	coremetrics "github.com/aapatcall/roadassist/core/metrics"
)

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOffer forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordOffer(ev events.OfferEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordOffer(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordClaim forwards the event to all sinks.
func (m *MultiSink) RecordClaim(ev events.ClaimEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordClaim(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordDecline forwards the event to all sinks.
func (m *MultiSink) RecordDecline(ev events.DeclineEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDecline(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordExhausted forwards the event to all sinks.
func (m *MultiSink) RecordExhausted(ev events.ExhaustedEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordExhausted(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordCancel forwards cancellations to sinks that track them.
func (m *MultiSink) RecordCancel(ev events.CancelEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.CancelRecorder); ok {
			if err := rec.RecordCancel(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
