// Package metrics provides the observability backends behind the core
// metrics.Sink interface: Prometheus, InfluxDB, and a fan-out combinator.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/aapatcall/roadassist/core/events"
	coremetrics "github.com/aapatcall/roadassist/core/metrics"
	"github.com/aapatcall/roadassist/infra/logger"
)

// InfluxSink writes dispatch lifecycle events to an InfluxDB instance using
// the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordOffer writes an offer publication event.
func (s *InfluxSink) RecordOffer(ev events.OfferEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_offer").
		AddTag("request_id", ev.RequestID).
		AddTag("job_id", ev.JobID).
		AddTag("mechanic_id", ev.MechanicID).
		AddTag("component", "dispatch_engine").
		AddField("position", ev.Position).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordClaim writes a winning accept.
func (s *InfluxSink) RecordClaim(ev events.ClaimEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_claim").
		AddTag("request_id", ev.RequestID).
		AddTag("job_id", ev.JobID).
		AddTag("mechanic_id", ev.MechanicID).
		AddTag("component", "dispatch_engine").
		AddField("offer_latency_ms", ev.OfferLatency.Milliseconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDecline writes a cursor advance.
func (s *InfluxSink) RecordDecline(ev events.DeclineEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_decline").
		AddTag("request_id", ev.RequestID).
		AddTag("mechanic_id", ev.MechanicID).
		AddTag("timed_out", strconv.FormatBool(ev.TimedOut)).
		AddTag("component", "dispatch_engine").
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordExhausted writes a request that resolved without a taker.
func (s *InfluxSink) RecordExhausted(ev events.ExhaustedEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_exhausted").
		AddTag("request_id", ev.RequestID).
		AddTag("job_id", ev.JobID).
		AddTag("component", "dispatch_engine").
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCancel writes a requester-side withdrawal.
func (s *InfluxSink) RecordCancel(ev events.CancelEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_cancel").
		AddTag("request_id", ev.RequestID).
		AddTag("job_id", ev.JobID).
		AddTag("component", "dispatch_engine").
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
