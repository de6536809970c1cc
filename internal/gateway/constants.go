package gateway

import "time"

// WebSocket timing constants, tuned for mobile network tolerance.
const (
	// writeWait is time allowed to write a frame to the peer.
	writeWait = 15 * time.Second

	// pongWait is time allowed to read the next pong from the peer.
	pongWait = 90 * time.Second

	// pingPeriod is the interval for transport-level pings. Must be less
	// than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound control frames. Clients only send
	// Identify/Ping/Pong, so anything large is garbage.
	maxMessageSize = 8 * 1024
)

// Queue sizing defaults. Both queues are bounded: a full destination queue
// makes the multiplexer treat the subscriber as dead rather than block
// fan-out behind a slow consumer.
const (
	// DefaultOutboundBuffer sizes the per-connection control event queue.
	DefaultOutboundBuffer = 64

	// DefaultQueueBuffer sizes the per-connection routed delivery queue.
	DefaultQueueBuffer = 256
)
