// Package bus implements the shared pub/sub bus and the subscription
// multiplexer that fans one upstream event stream out to per-connection
// queues.
package bus

import "context"

// Delivery is one message received from the upstream bus. Pattern is the
// subscription pattern that matched, Channel the concrete routing key the
// publisher used.
type Delivery struct {
	Pattern string
	Channel string
	Payload []byte
}

// Bus is the upstream pub/sub connection. The multiplexer is its sole
// consumer.
type Bus interface {
	// Subscribe issues a pattern subscription upstream.
	Subscribe(ctx context.Context, patterns ...string) error

	// Unsubscribe removes a pattern subscription upstream.
	Unsubscribe(ctx context.Context, patterns ...string) error

	// Messages returns the stream of deliveries. The channel is closed
	// when the bus is closed.
	Messages() <-chan Delivery

	// Disconnects reports upstream connection losses. After a value is
	// received the bus has already re-opened its connection; the consumer
	// must re-issue its subscriptions.
	Disconnects() <-chan error

	// Close tears down the upstream connection.
	Close() error
}
