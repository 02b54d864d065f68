package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aapatcall/roadassist/core/events"
	"github.com/aapatcall/roadassist/internal/eventbus"
)

type captureSink struct {
	mu        sync.Mutex
	offers    []events.OfferEvent
	claims    []events.ClaimEvent
	declines  []events.DeclineEvent
	exhausted []events.ExhaustedEvent
}

func (s *captureSink) RecordOffer(ev events.OfferEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers = append(s.offers, ev)
	return nil
}

func (s *captureSink) RecordClaim(ev events.ClaimEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = append(s.claims, ev)
	return nil
}

func (s *captureSink) RecordDecline(ev events.DeclineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declines = append(s.declines, ev)
	return nil
}

func (s *captureSink) RecordExhausted(ev events.ExhaustedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exhausted = append(s.exhausted, ev)
	return nil
}

func TestRecorderForwardsLifecycleEvents(t *testing.T) {
	bus := eventbus.New[events.Event]()
	sink := &captureSink{}
	rec := NewRecorder(bus, sink, nil)

	now := time.Now()
	bus.Publish(events.OfferEvent{RequestID: "r1", JobID: "j1", MechanicID: "m1", Time: now})
	bus.Publish(events.DeclineEvent{RequestID: "r1", MechanicID: "m1", TimedOut: true, Time: now})
	bus.Publish(events.ClaimEvent{RequestID: "r1", JobID: "j1", MechanicID: "m2", OfferLatency: time.Second, Time: now})
	bus.Close()
	rec.Wait()

	assert.Len(t, sink.offers, 1)
	assert.Len(t, sink.claims, 1)
	assert.Len(t, sink.declines, 1)
	assert.True(t, sink.declines[0].TimedOut)
	assert.Equal(t, "m2", sink.claims[0].MechanicID)
}

func TestRecorderIgnoresCancelWithoutRecorder(t *testing.T) {
	bus := eventbus.New[events.Event]()
	sink := &captureSink{}
	rec := NewRecorder(bus, sink, nil)

	bus.Publish(events.CancelEvent{RequestID: "r1", JobID: "j1", Time: time.Now()})
	bus.Publish(events.ExhaustedEvent{RequestID: "r1", JobID: "j1", Time: time.Now()})
	bus.Close()
	rec.Wait()

	assert.Len(t, sink.exhausted, 1)
}
