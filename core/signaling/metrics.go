package signaling

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	forwardedTotal *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec) {
	forwarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_forwarded_total",
		Help: "Call signaling messages forwarded to the call group by type",
	}, []string{"type"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_dropped_total",
		Help: "Call signaling messages withheld by the gate by type",
	}, []string{"type"})
	return forwarded, dropped
}

func init() {
	forwardedTotal, droppedTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers signaling metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(forwardedTotal, droppedTotal)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	forwardedTotal, droppedTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
