package bus

import (
	"context"
	"sync"

	"github.com/chatgate/chatgate/internal/domain"
	"github.com/rs/zerolog/log"
)

// gcThreshold is the number of failed queue sends accumulated before a
// garbage collection pass runs. Unsubscribe calls are network round-trips
// to the bus; batching amortizes their cost against transient slow
// consumers.
const gcThreshold = 5

// request is a new-subscription request from a transmit task.
type request struct {
	subscriberID string
	pattern      string
	queue        chan<- Delivery
}

// Stats is a point-in-time snapshot of multiplexer state.
type Stats struct {
	Patterns    int `json:"patterns"`
	Subscribers int `json:"subscribers"`
}

// Multiplexer owns the upstream bus connection and fans deliveries out to
// per-subscriber queues. Both internal maps are mutated only by the run
// loop, so the hot fan-out path takes no locks.
type Multiplexer struct {
	bus      Bus
	requests chan request
	stopped  chan struct{}

	// owned by the run loop
	patterns map[string]map[string]struct{}
	queues   map[string]chan<- Delivery
	pending  map[string]struct{}
	failures int

	// stats mirror, the only state shared outside the loop
	statsMu sync.RWMutex
	stats   Stats

	startOnce sync.Once
}

// NewMultiplexer creates a multiplexer over the given bus. Run must be
// called before Subscribe.
func NewMultiplexer(b Bus) *Multiplexer {
	return &Multiplexer{
		bus:      b,
		requests: make(chan request, 64),
		stopped:  make(chan struct{}),
		patterns: make(map[string]map[string]struct{}),
		queues:   make(map[string]chan<- Delivery),
		pending:  make(map[string]struct{}),
	}
}

// Start launches the run loop. It returns immediately.
func (m *Multiplexer) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

// Subscribe requests delivery of messages matching pattern to queue.
// Subscribing an already-subscribed (subscriber, pattern) pair is a no-op.
// Returns domain.ErrMuxStopped once the run loop has exited.
func (m *Multiplexer) Subscribe(subscriberID, pattern string, queue chan<- Delivery) error {
	req := request{subscriberID: subscriberID, pattern: pattern, queue: queue}
	select {
	case m.requests <- req:
		return nil
	case <-m.stopped:
		return domain.ErrMuxStopped
	}
}

// Stats returns a snapshot of pattern and subscriber counts.
func (m *Multiplexer) Stats() Stats {
	m.statsMu.RLock()
	defer m.statsMu.RUnlock()
	return m.stats
}

// run is the single-writer event loop.
func (m *Multiplexer) run(ctx context.Context) {
	defer close(m.stopped)

	log.Debug().Msg("subscription multiplexer started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("subscription multiplexer stopped")
			return

		case req := <-m.requests:
			m.handleSubscribe(ctx, req)

		case d, ok := <-m.bus.Messages():
			if !ok {
				log.Warn().Msg("bus message stream closed, multiplexer exiting")
				return
			}
			m.fanOut(ctx, d)

		case err := <-m.bus.Disconnects():
			m.resubscribeAll(ctx, err)
		}
	}
}

// handleSubscribe registers a subscriber for a pattern, issuing an upstream
// subscribe for the first subscriber of that pattern.
func (m *Multiplexer) handleSubscribe(ctx context.Context, req request) {
	set, ok := m.patterns[req.pattern]
	if !ok {
		if err := m.bus.Subscribe(ctx, req.pattern); err != nil {
			// Registered anyway: the disconnect path re-issues every
			// live pattern once the bus is back.
			log.Error().Err(err).Str("pattern", req.pattern).Msg("upstream subscribe failed")
		}
		set = make(map[string]struct{})
		m.patterns[req.pattern] = set
	}
	set[req.subscriberID] = struct{}{}
	m.queues[req.subscriberID] = req.queue
	m.updateStats()

	log.Debug().
		Str("subscriber_id", req.subscriberID).
		Str("pattern", req.pattern).
		Msg("subscriber registered")
}

// fanOut delivers one upstream message to every subscriber of its pattern.
// A full or abandoned queue marks the subscriber for batched collection.
func (m *Multiplexer) fanOut(ctx context.Context, d Delivery) {
	for id := range m.patterns[d.Pattern] {
		queue, ok := m.queues[id]
		if !ok {
			m.pending[id] = struct{}{}
			m.failures++
			continue
		}
		select {
		case queue <- d:
		default:
			m.pending[id] = struct{}{}
			m.failures++
		}
	}

	if m.failures >= gcThreshold {
		m.collect(ctx)
	}
}

// collect removes every pending subscriber from both maps. A pattern left
// with no subscribers is unsubscribed upstream and dropped.
func (m *Multiplexer) collect(ctx context.Context) {
	var dead []string
	for pattern, set := range m.patterns {
		for id := range m.pending {
			delete(set, id)
		}
		if len(set) == 0 {
			dead = append(dead, pattern)
			delete(m.patterns, pattern)
		}
	}

	if len(dead) > 0 {
		if err := m.bus.Unsubscribe(ctx, dead...); err != nil {
			log.Error().Err(err).Strs("patterns", dead).Msg("upstream unsubscribe failed")
		}
	}

	for id := range m.pending {
		delete(m.queues, id)
		delete(m.pending, id)
		log.Debug().Str("subscriber_id", id).Msg("subscriber collected")
	}
	m.failures = 0
	m.updateStats()
}

// resubscribeAll re-issues every live pattern after an upstream reconnect.
// No delivery happens while reconnecting and no backlog is replayed.
func (m *Multiplexer) resubscribeAll(ctx context.Context, cause error) {
	patterns := make([]string, 0, len(m.patterns))
	for pattern := range m.patterns {
		patterns = append(patterns, pattern)
	}

	log.Warn().
		Err(cause).
		Int("patterns", len(patterns)).
		Msg("bus disconnected, re-issuing subscriptions")

	if len(patterns) == 0 {
		return
	}
	if err := m.bus.Subscribe(ctx, patterns...); err != nil {
		log.Error().Err(err).Msg("resubscribe after reconnect failed")
	}
}

func (m *Multiplexer) updateStats() {
	m.statsMu.Lock()
	m.stats = Stats{Patterns: len(m.patterns), Subscribers: len(m.queues)}
	m.statsMu.Unlock()
}
