package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aapatcall/roadassist/core/events"
	coremetrics "github.com/aapatcall/roadassist/core/metrics"
)

// PromSink records dispatch lifecycle events in Prometheus metrics.
type PromSink struct {
	outcomes *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewPromSink registers dispatch outcome metrics on the default Prometheus
// registerer.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_lifecycle_events_total",
		Help: "Dispatch lifecycle events by kind",
	}, []string{"kind", "timed_out"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_claim_latency_seconds",
		Help:    "Time between the winning offer and the claim",
		Buckets: prometheus.DefBuckets,
	})

	if err := reg.Register(outcomes); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			outcomes = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}

	return &PromSink{outcomes: outcomes, latency: latency}, nil
}

// RecordOffer counts an offer publication.
func (s *PromSink) RecordOffer(events.OfferEvent) error {
	s.outcomes.WithLabelValues("offer", "false").Inc()
	return nil
}

// RecordClaim counts a winning accept and observes its offer latency.
func (s *PromSink) RecordClaim(ev events.ClaimEvent) error {
	s.outcomes.WithLabelValues("claim", "false").Inc()
	if ev.OfferLatency > 0 {
		s.latency.Observe(ev.OfferLatency.Seconds())
	}
	return nil
}

// RecordDecline counts a cursor advance.
func (s *PromSink) RecordDecline(ev events.DeclineEvent) error {
	s.outcomes.WithLabelValues("decline", strconv.FormatBool(ev.TimedOut)).Inc()
	return nil
}

// RecordExhausted counts a request resolved without a taker.
func (s *PromSink) RecordExhausted(events.ExhaustedEvent) error {
	s.outcomes.WithLabelValues("exhausted", "false").Inc()
	return nil
}

// RecordCancel counts a requester-side withdrawal.
func (s *PromSink) RecordCancel(events.CancelEvent) error {
	s.outcomes.WithLabelValues("cancel", "false").Inc()
	return nil
}
