package gateway

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/chatgate/chatgate/internal/domain/events"
)

// Conn is one gateway connection's identity and channel endpoints. It is
// created at accept and destroyed at teardown; it is never persisted.
//
// The receive and transmit tasks never share mutable state directly: they
// communicate only through the outbound queue and the close signal.
type Conn struct {
	id string

	// identified is the write-once identify-received flag.
	identified atomic.Bool

	// userID is set exactly once, by the identify handler.
	userID atomic.Uint64

	// outbound carries control and self events from the receive task and
	// the identify handler to the transmit task.
	outbound chan events.OutboundEvent

	// close signal: admits exactly one reason, first writer wins.
	closeOnce   sync.Once
	closeReason CloseReason
	closed      chan struct{}
}

func newConn(outboundBuffer int) *Conn {
	return &Conn{
		id:       uuid.New().String(),
		outbound: make(chan events.OutboundEvent, outboundBuffer),
		closed:   make(chan struct{}),
	}
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string {
	return c.id
}

// tryIdentify sets the identify-received flag. It returns false if the
// flag was already set: a second Identify on the same connection.
func (c *Conn) tryIdentify() bool {
	return c.identified.CompareAndSwap(false, true)
}

// isIdentified reports whether an Identify has been received.
func (c *Conn) isIdentified() bool {
	return c.identified.Load()
}

// setUser records the authenticated user id.
func (c *Conn) setUser(id uint64) {
	c.userID.Store(id)
}

// user returns the authenticated user id, zero before identify.
func (c *Conn) user() uint64 {
	return c.userID.Load()
}

// signalClose records the close reason and wakes the sibling task. Only
// the first reason is kept.
func (c *Conn) signalClose(reason CloseReason) {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		close(c.closed)
	})
}

// closeSignal is closed once a close reason has been produced.
func (c *Conn) closeSignal() <-chan struct{} {
	return c.closed
}

// reason returns the recorded close reason. Valid only after closeSignal
// fires.
func (c *Conn) reason() CloseReason {
	return c.closeReason
}

// queueOutbound enqueues an event for the transmit task without blocking.
// It returns false when the queue is full.
func (c *Conn) queueOutbound(ev events.OutboundEvent) bool {
	select {
	case c.outbound <- ev:
		return true
	default:
		return false
	}
}
