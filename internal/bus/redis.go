package bus

import (
	"context"
	"sync"
	"time"

	"github.com/chatgate/chatgate/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// redisReopenDelay paces reconnect attempts after an upstream failure.
const redisReopenDelay = 250 * time.Millisecond

// RedisBus is the production Bus, a single PSUBSCRIBE connection to Redis.
type RedisBus struct {
	client *redis.Client

	mu     sync.Mutex
	pubsub *redis.PubSub
	closed bool

	messages chan Delivery
	disc     chan error
	done     chan struct{}
}

// NewRedisBus opens a pattern-subscription connection on the given client
// and starts its reader.
func NewRedisBus(client *redis.Client) *RedisBus {
	b := &RedisBus{
		client:   client,
		pubsub:   client.PSubscribe(context.Background()),
		messages: make(chan Delivery, 256),
		disc:     make(chan error, 1),
		done:     make(chan struct{}),
	}
	go b.readLoop()
	return b
}

// Subscribe issues PSUBSCRIBE for the patterns.
func (b *RedisBus) Subscribe(ctx context.Context, patterns ...string) error {
	b.mu.Lock()
	pubsub := b.pubsub
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return domain.NewBusError("psubscribe", domain.ErrBusHangup)
	}
	if err := pubsub.PSubscribe(ctx, patterns...); err != nil {
		return domain.NewBusError("psubscribe", err)
	}
	return nil
}

// Unsubscribe issues PUNSUBSCRIBE for the patterns.
func (b *RedisBus) Unsubscribe(ctx context.Context, patterns ...string) error {
	b.mu.Lock()
	pubsub := b.pubsub
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return domain.NewBusError("punsubscribe", domain.ErrBusHangup)
	}
	if err := pubsub.PUnsubscribe(ctx, patterns...); err != nil {
		return domain.NewBusError("punsubscribe", err)
	}
	return nil
}

// Messages returns the delivery stream.
func (b *RedisBus) Messages() <-chan Delivery {
	return b.messages
}

// Disconnects returns the disconnect notification stream.
func (b *RedisBus) Disconnects() <-chan error {
	return b.disc
}

// Close tears down the subscription connection.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	pubsub := b.pubsub
	b.mu.Unlock()

	close(b.done)
	// The messages channel stays open: the reader may be mid-send, and the
	// consumer exits on its own context.
	return pubsub.Close()
}

// readLoop pumps messages from the subscription connection. On a read
// error it replaces the connection and notifies the consumer, retrying
// unconditionally until the bus is closed.
func (b *RedisBus) readLoop() {
	ctx := context.Background()
	for {
		b.mu.Lock()
		pubsub := b.pubsub
		b.mu.Unlock()

		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			select {
			case <-b.done:
				return
			default:
			}

			log.Warn().Err(err).Msg("redis pubsub read failed, reopening")
			b.reopen()

			select {
			case b.disc <- err:
			default:
			}

			select {
			case <-b.done:
				return
			case <-time.After(redisReopenDelay):
			}
			continue
		}

		select {
		case b.messages <- Delivery{Pattern: msg.Pattern, Channel: msg.Channel, Payload: []byte(msg.Payload)}:
		case <-b.done:
			return
		}
	}
}

// reopen replaces the dead subscription connection with a fresh one. The
// consumer re-issues its patterns after the disconnect notice.
func (b *RedisBus) reopen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	_ = b.pubsub.Close()
	b.pubsub = b.client.PSubscribe(context.Background())
}
