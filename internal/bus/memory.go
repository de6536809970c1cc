package bus

import (
	"context"
	"path"
	"sync"

	"github.com/chatgate/chatgate/internal/domain"
)

// MemoryBus is an in-process Bus used by tests and single-node setups.
// Publish matches the concrete channel against every subscribed glob
// pattern and emits one delivery per match, mirroring the upstream bus.
type MemoryBus struct {
	mu        sync.Mutex
	patterns  map[string]struct{}
	closed    bool
	messages  chan Delivery
	disc      chan error
	subLog    []string
	unsubLog  []string
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		patterns: make(map[string]struct{}),
		messages: make(chan Delivery, 256),
		disc:     make(chan error, 1),
	}
}

// Subscribe records the patterns as subscribed.
func (b *MemoryBus) Subscribe(_ context.Context, patterns ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return domain.NewBusError("subscribe", domain.ErrBusHangup)
	}
	for _, pattern := range patterns {
		b.patterns[pattern] = struct{}{}
		b.subLog = append(b.subLog, pattern)
	}
	return nil
}

// Unsubscribe removes the patterns.
func (b *MemoryBus) Unsubscribe(_ context.Context, patterns ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return domain.NewBusError("unsubscribe", domain.ErrBusHangup)
	}
	for _, pattern := range patterns {
		delete(b.patterns, pattern)
		b.unsubLog = append(b.unsubLog, pattern)
	}
	return nil
}

// Messages returns the delivery stream.
func (b *MemoryBus) Messages() <-chan Delivery {
	return b.messages
}

// Disconnects returns the disconnect notification stream.
func (b *MemoryBus) Disconnects() <-chan error {
	return b.disc
}

// Close closes the bus and its delivery stream.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.messages)
	return nil
}

// Publish delivers payload to every subscription whose pattern matches
// channel. One delivery is emitted per matching pattern.
func (b *MemoryBus) Publish(channel string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for pattern := range b.patterns {
		if ok, err := path.Match(pattern, channel); err == nil && ok {
			b.messages <- Delivery{Pattern: pattern, Channel: channel, Payload: payload}
		}
	}
}

// Disconnect simulates an upstream connection loss. Subscriptions are wiped
// exactly as a dropped connection would wipe them server-side; the consumer
// is expected to re-issue its patterns.
func (b *MemoryBus) Disconnect(err error) {
	b.mu.Lock()
	b.patterns = make(map[string]struct{})
	b.mu.Unlock()
	select {
	case b.disc <- err:
	default:
	}
}

// SubscribeCalls returns the patterns passed to Subscribe, in order.
func (b *MemoryBus) SubscribeCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.subLog))
	copy(out, b.subLog)
	return out
}

// UnsubscribeCalls returns the patterns passed to Unsubscribe, in order.
func (b *MemoryBus) UnsubscribeCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.unsubLog))
	copy(out, b.unsubLog)
	return out
}

// Subscribed reports whether a pattern currently has an upstream
// subscription.
func (b *MemoryBus) Subscribed(pattern string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.patterns[pattern]
	return ok
}
