package relay

// ChanConn is a Conn backed by a buffered channel. Delivery is non-blocking:
// when the buffer is full the message is dropped, mirroring the best-effort
// contract of the bus. Transports drain C and write to their socket.
type ChanConn struct {
	id string
	C  chan Message
}

// NewChanConn creates a ChanConn with the given identity and buffer size.
func NewChanConn(id string, buffer int) *ChanConn {
	if buffer <= 0 {
		buffer = 8
	}
	return &ChanConn{id: id, C: make(chan Message, buffer)}
}

func (c *ChanConn) ID() string { return c.id }

func (c *ChanConn) Send(msg Message) error {
	select {
	case c.C <- msg:
	default:
	}
	return nil
}

// Close releases the channel. The bus never sends after Leave returns, so the
// owner must Leave all groups first.
func (c *ChanConn) Close() { close(c.C) }
