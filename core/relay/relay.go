// Package relay implements the group-addressed publish/subscribe bus that
// carries all live traffic between the dispatch core and connected clients.
// Connections join named groups; a publish to a group fans out to every
// member. Membership is ephemeral: groups appear on first join and vanish
// when the last member leaves. There is no buffering and no replay: a
// connection that is not a member at publish time never sees the message.
package relay

import (
	"sync"

	"github.com/aapatcall/roadassist/core/logger"
)

// Conn is a live client connection handle. Implementations deliver the
// message over whatever transport the client is attached through.
type Conn interface {
	ID() string
	Send(msg Message) error
}

// Bus is the process-wide relay. Join/Leave are linearized per bus; Publish
// snapshots the group membership under a read lock and sends outside it, so
// it is safe to call concurrently with membership changes.
type Bus struct {
	mu     sync.RWMutex
	groups map[string][]Conn
	log    logger.Logger

	onEmpty func(group string)
}

// Option configures a Bus.
type Option func(*Bus)

// WithGroupEmptyHook registers a callback invoked after the last member of a
// group leaves. The signaling coordinator uses it to release per-call state.
func WithGroupEmptyHook(fn func(group string)) Option {
	return func(b *Bus) { b.onEmpty = fn }
}

// New creates an empty Bus.
func New(log logger.Logger, opts ...Option) *Bus {
	b := &Bus{groups: make(map[string][]Conn), log: log}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Join adds the connection to the group, creating the group if needed.
// Joining the same group twice with the same connection ID is a no-op.
func (b *Bus) Join(group string, c Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.groups[group] {
		if m.ID() == c.ID() {
			return
		}
	}
	b.groups[group] = append(b.groups[group], c)
}

// Leave removes the connection from the group. Removing the last member
// destroys the group and fires the empty hook.
func (b *Bus) Leave(group string, c Conn) {
	b.mu.Lock()
	members, existed := b.groups[group]
	for i, m := range members {
		if m.ID() == c.ID() {
			b.groups[group] = append(members[:i], members[i+1:]...)
			break
		}
	}
	// The hook fires only when a group that actually had members drains;
	// leaving an unknown group must not look like a teardown.
	empty := existed && len(b.groups[group]) == 0
	if empty {
		delete(b.groups, group)
	}
	b.mu.Unlock()
	if empty && b.onEmpty != nil {
		b.onEmpty(group)
	}
}

// PublishOption adjusts delivery of a single publish call.
type PublishOption func(*publishOpts)

type publishOpts struct {
	excludeID string
}

// ExcludeConn skips delivery to the connection with the given ID. Call
// signaling uses it to avoid echoing a sender's own message back.
func ExcludeConn(id string) PublishOption {
	return func(o *publishOpts) { o.excludeID = id }
}

// Publish sends msg to every member of the group and returns the number of
// deliveries. Publishing to an unknown or empty group is a silent no-op:
// disconnected recipients are expected on mobile networks. Send errors are
// logged and do not abort delivery to the remaining members.
func (b *Bus) Publish(group string, msg Message, opts ...PublishOption) int {
	var po publishOpts
	for _, o := range opts {
		o(&po)
	}
	b.mu.RLock()
	members := make([]Conn, len(b.groups[group]))
	copy(members, b.groups[group])
	b.mu.RUnlock()

	delivered := 0
	for _, m := range members {
		if po.excludeID != "" && m.ID() == po.excludeID {
			continue
		}
		if err := m.Send(msg); err != nil {
			if b.log != nil {
				b.log.Warnf("relay: send %s to %s failed: %v", msg.Type, m.ID(), err)
			}
			continue
		}
		delivered++
	}
	return delivered
}

// Members returns the current size of a group.
func (b *Bus) Members(group string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.groups[group])
}
