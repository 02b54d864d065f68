// Package app wires the dispatch engine, relay, signaling, and transports
// into a runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aapatcall/roadassist/api"
	"github.com/aapatcall/roadassist/config"
	"github.com/aapatcall/roadassist/core/dispatch"
	"github.com/aapatcall/roadassist/core/dispatch/audit"
	"github.com/aapatcall/roadassist/core/events"
	"github.com/aapatcall/roadassist/core/jobs"
	coremetrics "github.com/aapatcall/roadassist/core/metrics"
	"github.com/aapatcall/roadassist/core/registry"
	"github.com/aapatcall/roadassist/core/relay"
	"github.com/aapatcall/roadassist/core/signaling"
	"github.com/aapatcall/roadassist/infra/eta"
	"github.com/aapatcall/roadassist/infra/logger"
	"github.com/aapatcall/roadassist/infra/metrics"
	"github.com/aapatcall/roadassist/infra/mqtt"
	"github.com/aapatcall/roadassist/internal/eventbus"
)

// Service orchestrates the dispatch engine and its transports.
type Service struct {
	Engine     *dispatch.Engine
	Relay      *relay.Bus
	Signaling  *signaling.Coordinator
	Registry   registry.Store
	Jobs       jobs.Store
	Audit      audit.Store

	bridge   *mqtt.Bridge
	recorder *coremetrics.Recorder
	httpAddr string
	router   http.Handler
	promPort int
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var coordinator *signaling.Coordinator
	bus := relay.New(logger.New("relay"), relay.WithGroupEmptyHook(func(group string) {
		if jobID, ok := strings.CutPrefix(group, "call_"); ok && coordinator != nil {
			coordinator.Release(jobID)
		}
	}))
	coordinator = signaling.NewCoordinator(bus, logger.New("signaling"))

	reg := registry.NewMemoryStore()
	jobStore := jobs.NewMemoryStore()

	var auditStore audit.Store
	switch cfg.Audit.Backend {
	case "sqlite":
		s, err := audit.NewSQLiteStore(cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
		auditStore = s
	default:
		auditStore = audit.NewMemoryStore()
	}

	eventBus := eventbus.New[events.Event]()
	engine, err := dispatch.NewEngine(reg, jobStore, bus, auditStore, eventBus, logger.New("dispatch"), cfg.Dispatch)
	if err != nil {
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusPort > 0 {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.Influx.URL != "" {
		in := cfg.Metrics.Influx
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(in.URL, in.Token, in.Org, in.Bucket))
	}
	var recorder *coremetrics.Recorder
	if len(sinks) > 0 {
		var sink coremetrics.Sink = sinks[0]
		if len(sinks) > 1 {
			sink = metrics.NewMultiSink(sinks...)
		}
		recorder = coremetrics.NewRecorder(eventBus, sink, logg)
	}

	estimator := eta.NewEstimator()
	svc := &Service{
		Engine:    engine,
		Relay:     bus,
		Signaling: coordinator,
		Registry:  reg,
		Jobs:      jobStore,
		Audit:     auditStore,
		recorder:  recorder,
		httpAddr:  cfg.HTTP.Addr,
		promPort:  cfg.Metrics.PrometheusPort,
		log:       logg,
	}
	svc.router = api.SetupRoutes(api.Deps{
		Engine:     engine,
		Registry:   reg,
		Jobs:       jobStore,
		Relay:      bus,
		Audit:      auditStore,
		ETA:        estimator,
		Fares:      cfg.Fare.Schedule(),
		AuditToken: cfg.HTTP.AuditToken,
	})

	if cfg.MQTT.Enabled {
		bridge, err := mqtt.NewBridge(cfg.MQTT.Config, bus, svc.handleInbound)
		if err != nil {
			return nil, fmt.Errorf("mqtt bridge: %w", err)
		}
		svc.bridge = bridge
	}
	return svc, nil
}

// handleInbound routes messages arriving over the broker. Call signaling is
// gated per job; accept/decline responses feed the engine.
func (s *Service) handleInbound(group string, msg relay.Message) {
	if jobID, ok := strings.CutPrefix(group, "call_"); ok {
		sender := msg.Sender
		if sender == "" {
			sender = "mqtt:" + group
		}
		s.Signaling.Handle(jobID, sender, msg)
		return
	}

	str := func(key string) string {
		v, _ := msg.Fields[key].(string)
		return v
	}
	switch msg.Type {
	case "accept":
		if err := s.Engine.Accept(context.Background(), str("request_id"), str("mechanic_id")); err != nil {
			s.log.Warnf("inbound accept rejected: %v", err)
		}
	case "decline":
		if _, err := s.Engine.Decline(context.Background(), str("request_id"), str("mechanic_id")); err != nil {
			s.log.Warnf("inbound decline rejected: %v", err)
		}
	default:
		s.log.Debugf("ignoring inbound %s on %s", msg.Type, group)
	}
}

// AttachGroup exposes a relay group over the MQTT bridge. No-op when the
// bridge is disabled.
func (s *Service) AttachGroup(group string) {
	if s.bridge != nil {
		s.bridge.Attach(group)
	}
}

// Run starts the HTTP listener and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promPort > 0 {
		go func() {
			if err := metrics.StartPromServer(ctx, fmt.Sprintf(":%d", s.promPort)); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.httpAddr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("http listening on %s", s.httpAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.bridge != nil {
		s.bridge.Disconnect()
	}
	err := s.Engine.Close()
	if s.recorder != nil {
		s.recorder.Wait()
	}
	return err
}
