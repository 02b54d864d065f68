// Package events defines the dispatch lifecycle events emitted on the event
// bus.
//
// Available event types:
//   - OfferEvent: a candidate was offered a job
//   - ClaimEvent: a mechanic won the request
//   - DeclineEvent: the cursor candidate declined or timed out
//   - ExhaustedEvent: the candidate queue ran out with no winner
//   - CancelEvent: the requester cancelled the request
package events

import "time"

// Event is the union type carried on the dispatch event bus.
type Event interface{ dispatchEvent() }

// OfferEvent is published each time an offer goes out to a candidate.
type OfferEvent struct {
	RequestID  string
	JobID      string
	MechanicID string
	Position   int // cursor position of the offeree in the ranked queue
	Time       time.Time
}

// ClaimEvent is published when an accept wins the request.
type ClaimEvent struct {
	RequestID  string
	JobID      string
	MechanicID string
	// OfferLatency is the time between the winning candidate's offer and the
	// claim. Zero when the winner accepted from a stale offer position.
	OfferLatency time.Duration
	Time         time.Time
}

// DeclineEvent is published when the cursor candidate steps aside.
type DeclineEvent struct {
	RequestID  string
	MechanicID string
	// TimedOut distinguishes supervisory timer expiry from an explicit
	// decline.
	TimedOut bool
	Time     time.Time
}

// ExhaustedEvent is published once when a request runs out of candidates.
type ExhaustedEvent struct {
	RequestID string
	JobID     string
	Time      time.Time
}

// CancelEvent is published when the requester withdraws the job.
type CancelEvent struct {
	RequestID string
	JobID     string
	Time      time.Time
}

func (OfferEvent) dispatchEvent()     {}
func (ClaimEvent) dispatchEvent()     {}
func (DeclineEvent) dispatchEvent()   {}
func (ExhaustedEvent) dispatchEvent() {}
func (CancelEvent) dispatchEvent()    {}
