// Package dispatch matches a job to one mechanic out of a ranked candidate
// queue. Candidates are offered the job one at a time; a supervisory timer
// declines on behalf of candidates that never answer. The first accept to
// commit wins, regardless of where the cursor has moved in the meantime.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aapatcall/roadassist/core/dispatch/audit"
	"github.com/aapatcall/roadassist/core/events"
	"github.com/aapatcall/roadassist/core/jobs"
	"github.com/aapatcall/roadassist/core/logger"
	"github.com/aapatcall/roadassist/core/model"
	"github.com/aapatcall/roadassist/core/rank"
	"github.com/aapatcall/roadassist/core/registry"
	"github.com/aapatcall/roadassist/core/relay"
	"github.com/aapatcall/roadassist/internal/eventbus"
)

// Engine owns the lifecycle of every dispatch request in the process.
type Engine struct {
	registry registry.Store
	jobs     jobs.Store
	relay    *relay.Bus
	audit    audit.Store
	bus      *eventbus.Bus[events.Event]
	log      logger.Logger
	now      func() time.Time

	offerTimeout  time.Duration
	requestExpiry time.Duration

	mu       sync.RWMutex
	requests map[string]*requestState
}

// requestState pairs a Request with its runtime machinery. Every mutation of
// the request happens under mu, which linearizes accept, decline, the timers
// and cancellation against the winner field.
type requestState struct {
	mu  sync.Mutex
	req *Request

	// userID is the requester, captured at creation so resolution notices can
	// reach their personal group as well as the job's tracking group.
	userID string

	// offer is the prebuilt NEW_REQUEST payload, reused for every candidate.
	offer relay.Message
	// offerSeq invalidates supervisory timers armed for earlier cursor
	// positions.
	offerSeq    int
	offeredAt   time.Time
	offerTimer  *time.Timer
	expiryTimer *time.Timer
}

// NewEngine creates an Engine. Registry, job store and relay bus are
// mandatory; audit store and event bus may be nil.
func NewEngine(reg registry.Store, jobStore jobs.Store, bus *relay.Bus, auditStore audit.Store, events *eventbus.Bus[events.Event], log logger.Logger, cfg Config) (*Engine, error) {
	if reg == nil || jobStore == nil || bus == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewEngine")
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{
		registry:      reg,
		jobs:          jobStore,
		relay:         bus,
		audit:         auditStore,
		bus:           events,
		log:           log,
		now:           time.Now,
		offerTimeout:  cfg.OfferTimeout(),
		requestExpiry: cfg.RequestExpiry(),
		requests:      make(map[string]*requestState),
	}, nil
}

// SetTimeouts overrides the per-offer and per-request windows. Zero values
// keep the current setting.
func (e *Engine) SetTimeouts(offer, expiry time.Duration) {
	if offer > 0 {
		e.offerTimeout = offer
	}
	if expiry > 0 {
		e.requestExpiry = expiry
	}
}

// Close stops all supervisory timers and releases the audit store. Open
// requests are left unresolved; this is a process shutdown path, not a
// cancellation.
func (e *Engine) Close() error {
	e.mu.Lock()
	for _, rs := range e.requests {
		rs.mu.Lock()
		rs.stopTimersLocked()
		rs.mu.Unlock()
	}
	e.mu.Unlock()
	if e.bus != nil {
		e.bus.Close()
	}
	if e.audit != nil {
		return e.audit.Close()
	}
	return nil
}

// CreateDispatch builds the ranked candidate queue for the job and offers the
// head candidate. It returns the new request ID and the number of candidates.
// An empty queue resolves the request immediately and notifies the job's
// tracking group.
func (e *Engine) CreateDispatch(ctx context.Context, jobID string, origin model.Coordinates, vehicleType model.VehicleType) (string, int, error) {
	if !vehicleType.Valid() {
		return "", 0, fmt.Errorf("%w: unknown vehicle type %q", ErrInvalidArgument, vehicleType)
	}
	job, err := e.jobs.Get(ctx, jobID)
	if err != nil {
		return "", 0, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	snapshot := e.registry.List(registry.Filter{Available: true, VehicleType: vehicleType})
	queue, err := rank.Rank(origin, vehicleType, snapshot)
	if err != nil {
		if errors.Is(err, rank.ErrInvalidOrigin) {
			return "", 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return "", 0, err
	}

	now := e.now()
	req := &Request{
		ID:        uuid.NewString(),
		JobID:     jobID,
		Queue:     queue,
		CreatedAt: now,
		ExpiresAt: now.Add(e.requestExpiry),
	}
	rs := &requestState{
		req:    req,
		userID: job.UserID,
		offer: relay.Message{
			Type: relay.TypeNewRequest,
			Fields: map[string]any{
				"request_id":   req.ID,
				"job_id":       jobID,
				"problem":      job.Problem,
				"latitude":     origin.Lat,
				"longitude":    origin.Lng,
				"vehicle_type": string(vehicleType),
			},
		},
	}

	e.mu.Lock()
	e.requests[req.ID] = rs
	e.mu.Unlock()

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if len(queue) == 0 {
		e.log.Warnf("dispatch %s: no candidates for job %s", req.ID, jobID)
		e.exhaustLocked(rs)
		return req.ID, 0, nil
	}
	requestsOpen.Inc()
	e.log.Infof("dispatch %s: %d candidates for job %s, offering %s", req.ID, len(queue), jobID, queue[0])
	e.offerLocked(rs)
	rs.expiryTimer = time.AfterFunc(e.requestExpiry, func() { e.expire(req.ID) })
	return req.ID, len(queue), nil
}

// Accept records mechanicID as the winner of the request. This is the one
// true critical section in the engine: the check for "no winner yet" and the
// claim happen under the request lock, so two concurrent accepts can never
// both observe an open request. A candidate whose offer window has passed may
// still win as long as nobody else has claimed.
func (e *Engine) Accept(ctx context.Context, requestID, mechanicID string) error {
	rs, err := e.lookup(requestID)
	if err != nil {
		return err
	}
	mech, ok := e.registry.Get(mechanicID)
	if !ok {
		return fmt.Errorf("%w: mechanic %s", ErrNotFound, mechanicID)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	switch rs.req.State() {
	case Matched:
		return ErrAlreadyClaimed
	case Exhausted, Cancelled:
		return ErrExhausted
	}
	if !contains(rs.req.Queue, mechanicID) {
		return fmt.Errorf("%w: mechanic %s is not a candidate for request %s", ErrNotFound, mechanicID, requestID)
	}
	job, err := e.jobs.Get(ctx, rs.req.JobID)
	if err != nil {
		return fmt.Errorf("%w: job %s", ErrNotFound, rs.req.JobID)
	}

	now := e.now()
	wasCurrent := rs.req.Queue[rs.req.Cursor] == mechanicID
	rs.stopTimersLocked()
	rs.req.claim(mechanicID, now)
	requestsOpen.Dec()
	claimsTotal.Inc()
	var latency time.Duration
	if wasCurrent && !rs.offeredAt.IsZero() {
		latency = now.Sub(rs.offeredAt)
		offerLatency.Observe(latency.Seconds())
	}

	job.Assign(mechanicID, now)
	if err := e.jobs.Update(ctx, job); err != nil {
		e.log.Errorf("dispatch %s: job update failed: %v", requestID, err)
	}

	assigned := relay.Message{
		Type: relay.TypeMechanicAssigned,
		Fields: map[string]any{
			"job_id":         job.ID,
			"mechanic_name":  mech.Name,
			"mechanic_phone": mech.Phone,
			"latitude":       mech.Location.Lat,
			"longitude":      mech.Location.Lng,
		},
	}
	e.publish(relay.TrackingGroup(job.ID), assigned)
	if rs.userID != "" {
		e.publish(relay.UserGroup(rs.userID), assigned)
	}
	e.emit(events.ClaimEvent{RequestID: requestID, JobID: job.ID, MechanicID: mechanicID, OfferLatency: latency, Time: now})
	e.appendAudit(rs.req, "matched")
	e.log.Infof("dispatch %s: claimed by %s", requestID, mechanicID)
	return nil
}

// Decline steps the current offeree aside and moves on to the next candidate.
// Declines from a mechanic who is no longer at the cursor are benign no-ops.
// The returned bool reports whether the offer was transferred to a next
// candidate.
func (e *Engine) Decline(ctx context.Context, requestID, mechanicID string) (bool, error) {
	rs, err := e.lookup(requestID)
	if err != nil {
		return false, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return e.declineLocked(rs, mechanicID, false), nil
}

// Cancel terminates the request on behalf of the requester and suppresses any
// further offers. Cancelling an already matched request fails with
// ErrAlreadyClaimed.
func (e *Engine) Cancel(ctx context.Context, requestID string) error {
	rs, err := e.lookup(requestID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	switch rs.req.State() {
	case Matched:
		return ErrAlreadyClaimed
	case Exhausted, Cancelled:
		return nil
	}
	rs.stopTimersLocked()
	rs.req.cancelled = true
	requestsOpen.Dec()
	e.emit(events.CancelEvent{RequestID: requestID, JobID: rs.req.JobID, Time: e.now()})
	e.appendAudit(rs.req, "cancelled")
	e.log.Infof("dispatch %s: cancelled", requestID)
	return nil
}

// Snapshot returns a copy of the request for inspection.
func (e *Engine) Snapshot(requestID string) (Request, error) {
	rs, err := e.lookup(requestID)
	if err != nil {
		return Request{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	cp := *rs.req
	cp.Queue = append([]string(nil), rs.req.Queue...)
	return cp, nil
}

func (e *Engine) lookup(requestID string) (*requestState, error) {
	e.mu.RLock()
	rs, ok := e.requests[requestID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, requestID)
	}
	return rs, nil
}

// offerLocked publishes the NEW_REQUEST payload to the candidate at the
// cursor and arms the supervisory timer. Caller holds rs.mu.
func (e *Engine) offerLocked(rs *requestState) {
	candidate := rs.req.Queue[rs.req.Cursor]
	rs.offerSeq++
	seq := rs.offerSeq
	rs.offeredAt = e.now()
	offersTotal.Inc()
	e.publish(relay.MechanicGroup(candidate), rs.offer)
	e.emit(events.OfferEvent{
		RequestID:  rs.req.ID,
		JobID:      rs.req.JobID,
		MechanicID: candidate,
		Position:   rs.req.Cursor,
		Time:       rs.offeredAt,
	})
	requestID := rs.req.ID
	rs.offerTimer = time.AfterFunc(e.offerTimeout, func() { e.timeout(requestID, seq) })
}

// timeout is the supervisory path: a candidate that never answered is
// declined on their behalf. The sequence number discards timers armed for
// offers that have since been answered.
func (e *Engine) timeout(requestID string, seq int) {
	rs, err := e.lookup(requestID)
	if err != nil {
		return
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.req.State() != Open || rs.offerSeq != seq {
		return
	}
	candidate := rs.req.Queue[rs.req.Cursor]
	e.log.Debugf("dispatch %s: offer to %s timed out", requestID, candidate)
	e.declineLocked(rs, candidate, true)
}

// expire resolves a request that outlived its overall window.
func (e *Engine) expire(requestID string) {
	rs, err := e.lookup(requestID)
	if err != nil {
		return
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.req.State() != Open {
		return
	}
	rs.req.expired = true
	e.log.Infof("dispatch %s: expired with no taker", requestID)
	e.exhaustLocked(rs)
}

// declineLocked advances the cursor when mechanicID is the current offeree
// and either offers the next candidate or exhausts the request. Caller holds
// rs.mu. Returns true when the offer moved to a next candidate.
func (e *Engine) declineLocked(rs *requestState, mechanicID string, timedOut bool) bool {
	if rs.req.State() != Open {
		return false
	}
	if rs.req.Queue[rs.req.Cursor] != mechanicID {
		declinesTotal.WithLabelValues("stale").Inc()
		return false
	}
	if rs.offerTimer != nil {
		rs.offerTimer.Stop()
	}
	reason := "declined"
	if timedOut {
		reason = "timeout"
	}
	declinesTotal.WithLabelValues(reason).Inc()
	rs.req.advance()
	e.emit(events.DeclineEvent{RequestID: rs.req.ID, MechanicID: mechanicID, TimedOut: timedOut, Time: e.now()})

	if rs.req.State() == Open {
		e.log.Infof("dispatch %s: %s by %s, offering %s", rs.req.ID, reason, mechanicID, rs.req.Queue[rs.req.Cursor])
		e.offerLocked(rs)
		return true
	}
	e.exhaustLocked(rs)
	return false
}

// exhaustLocked resolves a request with no taker: publish the notice exactly
// once to the tracking group and the requester's own group, record the audit
// trail. Caller holds rs.mu.
func (e *Engine) exhaustLocked(rs *requestState) {
	rs.stopTimersLocked()
	// A request with an empty queue resolves before it ever counted as open.
	if len(rs.req.Queue) > 0 {
		requestsOpen.Dec()
	}
	exhaustedTotal.Inc()
	notice := relay.Message{
		Type:   relay.TypeNoMechanicAccepted,
		Fields: map[string]any{"message": "No mechanic accepted yet. You can try again."},
	}
	e.publish(relay.TrackingGroup(rs.req.JobID), notice)
	if rs.userID != "" {
		e.publish(relay.UserGroup(rs.userID), notice)
	}
	e.emit(events.ExhaustedEvent{RequestID: rs.req.ID, JobID: rs.req.JobID, Time: e.now()})
	e.appendAudit(rs.req, "exhausted")
}

func (rs *requestState) stopTimersLocked() {
	if rs.offerTimer != nil {
		rs.offerTimer.Stop()
	}
	if rs.expiryTimer != nil {
		rs.expiryTimer.Stop()
	}
}

func (e *Engine) publish(group string, msg relay.Message) {
	relayDeliveries.WithLabelValues(msg.Type).Inc()
	e.relay.Publish(group, msg)
}

func (e *Engine) emit(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) appendAudit(req *Request, outcome string) {
	if e.audit == nil {
		return
	}
	now := e.now()
	rec := audit.Record{
		Timestamp:  now,
		RequestID:  req.ID,
		JobID:      req.JobID,
		Queue:      append([]string(nil), req.Queue...),
		Cursor:     req.Cursor,
		Winner:     req.Winner,
		Outcome:    outcome,
		ClaimedAt:  req.ClaimedAt,
		CreatedAt:  req.CreatedAt,
		ResolvedAt: now,
	}
	if err := e.audit.Append(context.Background(), rec); err != nil {
		e.log.Errorf("dispatch %s: audit append failed: %v", req.ID, err)
	}
}

// nopLogger keeps the engine usable without a configured logger.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
