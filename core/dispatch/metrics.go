package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	offersTotal     prometheus.Counter
	claimsTotal     prometheus.Counter
	declinesTotal   *prometheus.CounterVec
	exhaustedTotal  prometheus.Counter
	offerLatency    prometheus.Histogram
	requestsOpen    prometheus.Gauge
	relayDeliveries *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, prometheus.Counter, *prometheus.CounterVec, prometheus.Counter, prometheus.Histogram, prometheus.Gauge, *prometheus.CounterVec) {
	offers := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_offers_total",
		Help: "Number of offers published to candidate mechanics",
	})
	claims := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_claims_total",
		Help: "Number of requests claimed by a mechanic",
	})
	declines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_declines_total",
		Help: "Cursor advances by reason",
	}, []string{"reason"})
	exhausted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_exhausted_total",
		Help: "Number of requests resolved without a taker",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_offer_latency_seconds",
		Help:    "Latency from offer publication to the winning claim",
		Buckets: prometheus.DefBuckets,
	})
	open := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_requests_open",
		Help: "Number of unresolved dispatch requests",
	})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_relay_messages_total",
		Help: "Messages published to relay groups by type",
	}, []string{"type"})
	return offers, claims, declines, exhausted, latency, open, deliveries
}

func init() {
	offersTotal, claimsTotal, declinesTotal, exhaustedTotal, offerLatency, requestsOpen, relayDeliveries = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(offersTotal, claimsTotal, declinesTotal, exhaustedTotal, offerLatency, requestsOpen, relayDeliveries)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	offersTotal, claimsTotal, declinesTotal, exhaustedTotal, offerLatency, requestsOpen, relayDeliveries = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
