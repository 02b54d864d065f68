package signaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aapatcall/roadassist/core/relay"
)

type callPair struct {
	bus    *relay.Bus
	coord  *Coordinator
	caller *relay.ChanConn
	callee *relay.ChanConn
}

func newCallPair(t *testing.T, jobID string) *callPair {
	t.Helper()
	p := &callPair{}
	p.bus = relay.New(nil, relay.WithGroupEmptyHook(func(group string) {
		if group == relay.CallGroup(jobID) {
			p.coord.Release(jobID)
		}
	}))
	p.coord = NewCoordinator(p.bus, nil)
	p.caller = relay.NewChanConn("caller", 8)
	p.callee = relay.NewChanConn("callee", 8)
	p.bus.Join(relay.CallGroup(jobID), p.caller)
	p.bus.Join(relay.CallGroup(jobID), p.callee)
	return p
}

func recv(t *testing.T, c *relay.ChanConn) relay.Message {
	t.Helper()
	select {
	case msg := <-c.C:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return relay.Message{}
}

func assertSilent(t *testing.T, c *relay.ChanConn) {
	t.Helper()
	select {
	case msg := <-c.C:
		t.Fatalf("unexpected %s", msg.Type)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestStartCallForwardsAsIncomingCall(t *testing.T) {
	p := newCallPair(t, "j1")

	p.coord.Handle("j1", "caller", relay.Message{Type: relay.TypeStartCall, Sender: "u1"})

	msg := recv(t, p.callee)
	assert.Equal(t, relay.TypeIncomingCall, msg.Type)
	assert.Equal(t, "j1", msg.Fields["job_id"])
	assert.Equal(t, "u1", msg.Fields["from"])
	assertSilent(t, p.caller)
	assert.Equal(t, Ringing, p.coord.Phase("j1"))
}

func TestOfferDroppedWhileRingingDeliveredAfterAccept(t *testing.T) {
	p := newCallPair(t, "j1")
	p.coord.Handle("j1", "caller", relay.Message{Type: relay.TypeStartCall, Sender: "u1"})
	recv(t, p.callee)

	offer := relay.Message{Type: relay.TypeOffer, Sender: "u1", Fields: map[string]any{"sdp": "v=0"}}
	p.coord.Handle("j1", "caller", offer)
	assertSilent(t, p.callee)

	p.coord.Handle("j1", "callee", relay.Message{Type: relay.TypeAcceptCall, Sender: "m1"})
	require.Equal(t, relay.TypeAcceptCall, recv(t, p.caller).Type)
	require.Equal(t, Accepted, p.coord.Phase("j1"))

	p.coord.Handle("j1", "caller", offer)
	got := recv(t, p.callee)
	assert.Equal(t, relay.TypeOffer, got.Type)
	assert.Equal(t, "v=0", got.Fields["sdp"])
	assertSilent(t, p.callee)
}

func TestRejectCallReturnsToIdle(t *testing.T) {
	p := newCallPair(t, "j1")
	p.coord.Handle("j1", "caller", relay.Message{Type: relay.TypeStartCall, Sender: "u1"})
	recv(t, p.callee)

	p.coord.Handle("j1", "callee", relay.Message{Type: relay.TypeRejectCall, Sender: "m1"})
	assert.Equal(t, relay.TypeRejectCall, recv(t, p.caller).Type)
	assert.Equal(t, Idle, p.coord.Phase("j1"))

	// Redial works after a reject.
	p.coord.Handle("j1", "caller", relay.Message{Type: relay.TypeStartCall, Sender: "u1"})
	assert.Equal(t, relay.TypeIncomingCall, recv(t, p.callee).Type)
}

func TestEndCallClearsAcceptedState(t *testing.T) {
	p := newCallPair(t, "j1")
	p.coord.Handle("j1", "caller", relay.Message{Type: relay.TypeStartCall, Sender: "u1"})
	recv(t, p.callee)
	p.coord.Handle("j1", "callee", relay.Message{Type: relay.TypeAcceptCall, Sender: "m1"})
	recv(t, p.caller)

	p.coord.Handle("j1", "caller", relay.Message{Type: relay.TypeEndCall, Sender: "u1"})
	assert.Equal(t, relay.TypeEndCall, recv(t, p.callee).Type)
	assert.Equal(t, Idle, p.coord.Phase("j1"))

	// ICE candidates after hangup are dropped again.
	p.coord.Handle("j1", "caller", relay.Message{Type: relay.TypeICECandidate, Sender: "u1"})
	assertSilent(t, p.callee)
}

func TestDuplicateStartCallDropped(t *testing.T) {
	p := newCallPair(t, "j1")
	p.coord.Handle("j1", "caller", relay.Message{Type: relay.TypeStartCall, Sender: "u1"})
	recv(t, p.callee)

	p.coord.Handle("j1", "callee", relay.Message{Type: relay.TypeStartCall, Sender: "m1"})
	assertSilent(t, p.caller)
	assert.Equal(t, Ringing, p.coord.Phase("j1"))
}

func TestUnknownTypePassesThrough(t *testing.T) {
	p := newCallPair(t, "j1")

	p.coord.Handle("j1", "caller", relay.Message{Type: "mute", Sender: "u1"})
	assert.Equal(t, "mute", recv(t, p.callee).Type)
	assert.Equal(t, Idle, p.coord.Phase("j1"))
}

func TestGateIsolatedPerJob(t *testing.T) {
	p := newCallPair(t, "j1")
	other := relay.NewChanConn("other", 8)
	p.bus.Join(relay.CallGroup("j2"), other)

	p.coord.Handle("j1", "caller", relay.Message{Type: relay.TypeStartCall, Sender: "u1"})
	recv(t, p.callee)
	assertSilent(t, other)
	assert.Equal(t, Idle, p.coord.Phase("j2"))
}

func TestGroupEmptyReleasesGate(t *testing.T) {
	p := newCallPair(t, "j1")
	p.coord.Handle("j1", "caller", relay.Message{Type: relay.TypeStartCall, Sender: "u1"})
	recv(t, p.callee)
	require.Equal(t, Ringing, p.coord.Phase("j1"))

	p.bus.Leave(relay.CallGroup("j1"), p.caller)
	p.bus.Leave(relay.CallGroup("j1"), p.callee)
	assert.Equal(t, Idle, p.coord.Phase("j1"))
}
