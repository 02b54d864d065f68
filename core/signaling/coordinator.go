// Package signaling gates the call-establishment handshake between the two
// participants of a job's call group. Media negotiation messages (offer,
// answer, ice-candidate) are withheld until the callee has accepted, so a
// caller's media description never reaches a connection that did not consent.
package signaling

import (
	"sync"

	"github.com/aapatcall/roadassist/core/logger"
	"github.com/aapatcall/roadassist/core/relay"
)

// Phase is the call-establishment state for one job.
type Phase int

const (
	Idle Phase = iota
	Ringing
	Accepted
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case Ringing:
		return "RINGING"
	case Accepted:
		return "ACCEPTED"
	default:
		return "UNKNOWN"
	}
}

// gate holds the per-job call state. Lifecycle: created on the first signal
// for a job, reset on reject/end, destroyed when the call group empties.
type gate struct {
	mu        sync.Mutex
	phase     Phase
	initiator string
}

// Coordinator routes signaling messages for all active calls. All state is
// owned here and keyed by job id; nothing survives a process restart, which
// is acceptable because an interrupted call is simply redialed.
type Coordinator struct {
	relay *relay.Bus
	log   logger.Logger

	mu    sync.Mutex
	gates map[string]*gate
}

// NewCoordinator creates a Coordinator publishing through bus.
func NewCoordinator(bus *relay.Bus, log logger.Logger) *Coordinator {
	return &Coordinator{
		relay: bus,
		log:   log,
		gates: make(map[string]*gate),
	}
}

func (c *Coordinator) gateFor(jobID string) *gate {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.gates[jobID]
	if !ok {
		g = &gate{}
		c.gates[jobID] = g
	}
	return g
}

// Handle applies msg to the job's call gate and forwards it to the other
// members of the call group, never back to the sender. Messages that the
// gate withholds are dropped silently; the sender gets no feedback.
func (c *Coordinator) Handle(jobID, senderConnID string, msg relay.Message) {
	g := c.gateFor(jobID)
	g.mu.Lock()
	defer g.mu.Unlock()

	forward := msg
	switch msg.Type {
	case relay.TypeStartCall:
		if g.phase != Idle {
			c.drop(jobID, msg.Type, g.phase)
			return
		}
		g.phase = Ringing
		g.initiator = senderConnID
		forward = relay.Message{
			Type:   relay.TypeIncomingCall,
			Sender: msg.Sender,
			Fields: map[string]any{"job_id": jobID, "from": msg.Sender},
		}
	case relay.TypeAcceptCall:
		if g.phase != Ringing {
			c.drop(jobID, msg.Type, g.phase)
			return
		}
		g.phase = Accepted
	case relay.TypeRejectCall:
		if g.phase != Ringing {
			c.drop(jobID, msg.Type, g.phase)
			return
		}
		g.phase = Idle
		g.initiator = ""
	case relay.TypeEndCall:
		if g.phase != Accepted {
			c.drop(jobID, msg.Type, g.phase)
			return
		}
		g.phase = Idle
		g.initiator = ""
	case relay.TypeOffer, relay.TypeAnswer, relay.TypeICECandidate:
		if g.phase != Accepted {
			c.drop(jobID, msg.Type, g.phase)
			return
		}
	default:
		// Permissive pass-through for types the gate does not know.
	}

	forwardedTotal.WithLabelValues(forward.Type).Inc()
	c.relay.Publish(relay.CallGroup(jobID), forward, relay.ExcludeConn(senderConnID))
}

func (c *Coordinator) drop(jobID, msgType string, phase Phase) {
	droppedTotal.WithLabelValues(msgType).Inc()
	if c.log != nil {
		c.log.Debugf("signaling: dropped %s for job %s in phase %s", msgType, jobID, phase)
	}
}

// Phase reports the current call phase for a job. Jobs without a gate are Idle.
func (c *Coordinator) Phase(jobID string) Phase {
	c.mu.Lock()
	g, ok := c.gates[jobID]
	c.mu.Unlock()
	if !ok {
		return Idle
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Release destroys the gate for a job. Wired to the relay's group-empty hook
// so call state dies with its last participant.
func (c *Coordinator) Release(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.gates, jobID)
}
