package relay

import (
	"sync"
	"testing"

	"go.uber.org/goleak"
)

type recordConn struct {
	id string
	mu sync.Mutex
	rx []Message
}

func (c *recordConn) ID() string { return c.id }

func (c *recordConn) Send(msg Message) error {
	c.mu.Lock()
	c.rx = append(c.rx, msg)
	c.mu.Unlock()
	return nil
}

func (c *recordConn) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.rx))
	copy(out, c.rx)
	return out
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublishFansOutToGroupMembers(t *testing.T) {
	bus := New(nil)
	a := &recordConn{id: "a"}
	b := &recordConn{id: "b"}
	bus.Join("tracking_1", a)
	bus.Join("tracking_1", b)

	n := bus.Publish("tracking_1", Message{Type: TypeLocationUpdate})
	if n != 2 {
		t.Fatalf("expected 2 deliveries got %d", n)
	}
	if len(a.received()) != 1 || len(b.received()) != 1 {
		t.Fatalf("both members must receive the message")
	}
}

func TestPublishIsolatedPerGroup(t *testing.T) {
	bus := New(nil)
	m7 := &recordConn{id: "c7"}
	m8 := &recordConn{id: "c8"}
	bus.Join(MechanicGroup("7"), m7)
	bus.Join(MechanicGroup("8"), m8)

	bus.Publish(MechanicGroup("7"), Message{Type: TypeNewRequest})
	if len(m7.received()) != 1 {
		t.Fatalf("mechanic_7 member must receive")
	}
	if len(m8.received()) != 0 {
		t.Fatalf("mechanic_8 member must not receive, got %v", m8.received())
	}
}

func TestPublishExcludesSender(t *testing.T) {
	bus := New(nil)
	caller := &recordConn{id: "caller"}
	callee := &recordConn{id: "callee"}
	bus.Join(CallGroup("1"), caller)
	bus.Join(CallGroup("1"), callee)

	n := bus.Publish(CallGroup("1"), Message{Type: TypeStartCall}, ExcludeConn("caller"))
	if n != 1 {
		t.Fatalf("expected 1 delivery got %d", n)
	}
	if len(caller.received()) != 0 {
		t.Fatalf("sender must not receive its own message")
	}
}

func TestPublishToEmptyGroupIsNoop(t *testing.T) {
	bus := New(nil)
	if n := bus.Publish("tracking_404", Message{Type: TypeLocationUpdate}); n != 0 {
		t.Fatalf("expected 0 deliveries got %d", n)
	}
}

func TestLeaveDestroysGroupAndFiresHook(t *testing.T) {
	var emptied []string
	bus := New(nil, WithGroupEmptyHook(func(g string) { emptied = append(emptied, g) }))
	c := &recordConn{id: "x"}
	bus.Join(CallGroup("9"), c)
	bus.Leave(CallGroup("9"), c)

	if bus.Members(CallGroup("9")) != 0 {
		t.Fatalf("group must be empty")
	}
	if len(emptied) != 1 || emptied[0] != CallGroup("9") {
		t.Fatalf("empty hook not fired: %v", emptied)
	}
	if n := bus.Publish(CallGroup("9"), Message{Type: TypeEndCall}); n != 0 {
		t.Fatalf("no deliveries after teardown, got %d", n)
	}
}

func TestLeaveUnknownGroupDoesNotFireHook(t *testing.T) {
	var emptied []string
	bus := New(nil, WithGroupEmptyHook(func(g string) { emptied = append(emptied, g) }))
	c := &recordConn{id: "x"}

	bus.Leave(CallGroup("404"), c)
	if len(emptied) != 0 {
		t.Fatalf("hook fired for a group that never existed: %v", emptied)
	}

	other := &recordConn{id: "y"}
	bus.Join(CallGroup("9"), other)
	bus.Leave(CallGroup("9"), c)
	if len(emptied) != 0 {
		t.Fatalf("hook fired while a member remains: %v", emptied)
	}
}

func TestDoubleJoinIsIdempotent(t *testing.T) {
	bus := New(nil)
	c := &recordConn{id: "dup"}
	bus.Join("g", c)
	bus.Join("g", c)
	if n := bus.Publish("g", Message{Type: TypeLocationUpdate}); n != 1 {
		t.Fatalf("expected single delivery got %d", n)
	}
}

func TestConcurrentPublishAndMembership(t *testing.T) {
	bus := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := NewChanConn("conn", 64)
			for j := 0; j < 100; j++ {
				bus.Join("g", c)
				bus.Publish("g", Message{Type: TypeLocationUpdate})
				bus.Leave("g", c)
			}
		}(i)
	}
	wg.Wait()
	if bus.Members("g") != 0 {
		t.Fatalf("expected empty group after teardown")
	}
}
