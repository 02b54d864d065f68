package metrics

import (
	"github.com/aapatcall/roadassist/core/events"
	"github.com/aapatcall/roadassist/core/logger"
	"github.com/aapatcall/roadassist/internal/eventbus"
)

// Recorder consumes the dispatch event bus and feeds a Sink. Sink errors are
// logged and never propagate back to the dispatch path.
type Recorder struct {
	sink Sink
	log  logger.Logger
	done chan struct{}
}

// NewRecorder subscribes to bus and starts forwarding events to sink.
// Stop unsubscribes and waits for the forwarding goroutine to exit.
func NewRecorder(bus *eventbus.Bus[events.Event], sink Sink, log logger.Logger) *Recorder {
	r := &Recorder{sink: sink, log: log, done: make(chan struct{})}
	ch := bus.Subscribe()
	go func() {
		defer close(r.done)
		for ev := range ch {
			r.record(ev)
		}
	}()
	return r
}

func (r *Recorder) record(ev events.Event) {
	var err error
	switch e := ev.(type) {
	case events.OfferEvent:
		err = r.sink.RecordOffer(e)
	case events.ClaimEvent:
		err = r.sink.RecordClaim(e)
	case events.DeclineEvent:
		err = r.sink.RecordDecline(e)
	case events.ExhaustedEvent:
		err = r.sink.RecordExhausted(e)
	case events.CancelEvent:
		if rec, ok := r.sink.(CancelRecorder); ok {
			err = rec.RecordCancel(e)
		}
	}
	if err != nil && r.log != nil {
		r.log.Errorf("metrics: record %T failed: %v", ev, err)
	}
}

// Wait blocks until the event bus closes and all pending events are recorded.
func (r *Recorder) Wait() {
	<-r.done
}
