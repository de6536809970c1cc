package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatgate/chatgate/internal/domain"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func recvDelivery(t *testing.T, queue <-chan Delivery) Delivery {
	t.Helper()
	select {
	case d := <-queue:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return Delivery{}
	}
}

func TestMultiplexer_FanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewMemoryBus()
	m := NewMultiplexer(b)
	m.Start(ctx)

	queueA := make(chan Delivery, 8)
	queueB := make(chan Delivery, 8)
	if err := m.Subscribe("conn-a", "*_100", queueA); err != nil {
		t.Fatalf("Subscribe(a) error = %v", err)
	}
	if err := m.Subscribe("conn-b", "*_100", queueB); err != nil {
		t.Fatalf("Subscribe(b) error = %v", err)
	}

	waitFor(t, func() bool { return b.Subscribed("*_100") }, "pattern never subscribed upstream")

	b.Publish("message_7_100", []byte(`{"event":"message_create"}`))

	for _, queue := range []chan Delivery{queueA, queueB} {
		d := recvDelivery(t, queue)
		if d.Channel != "message_7_100" {
			t.Errorf("channel = %q, want message_7_100", d.Channel)
		}
		if d.Pattern != "*_100" {
			t.Errorf("pattern = %q, want *_100", d.Pattern)
		}
	}
}

func TestMultiplexer_SubscribeIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewMemoryBus()
	m := NewMultiplexer(b)
	m.Start(ctx)

	queue := make(chan Delivery, 8)
	for i := 0; i < 3; i++ {
		if err := m.Subscribe("conn-a", "*_100", queue); err != nil {
			t.Fatalf("Subscribe() error = %v", err)
		}
	}
	waitFor(t, func() bool { return m.Stats().Subscribers == 1 }, "subscriber never registered")

	b.Publish("typing_100", []byte(`{"event":"typing_start"}`))
	recvDelivery(t, queue)

	select {
	case d := <-queue:
		t.Fatalf("duplicate delivery %+v", d)
	case <-time.After(100 * time.Millisecond):
	}

	if got := m.Stats().Patterns; got != 1 {
		t.Errorf("Stats().Patterns = %d, want 1", got)
	}
}

func TestMultiplexer_GarbageCollection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewMemoryBus()
	m := NewMultiplexer(b)
	m.Start(ctx)

	// A zero-capacity queue with no receiver fails every send.
	dead := make(chan Delivery)
	if err := m.Subscribe("conn-dead", "*_200", dead); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	live := make(chan Delivery, 64)
	if err := m.Subscribe("conn-live", "*_300", live); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	waitFor(t, func() bool { return m.Stats().Subscribers == 2 }, "subscribers never registered")

	// Five failed sends trip the batched collection.
	for i := 0; i < gcThreshold; i++ {
		b.Publish("guild_200", []byte(`{"event":"guild_update"}`))
	}

	waitFor(t, func() bool { return m.Stats().Subscribers == 1 }, "dead subscriber never collected")

	if got := m.Stats().Patterns; got != 1 {
		t.Errorf("Stats().Patterns = %d, want 1", got)
	}

	unsubs := b.UnsubscribeCalls()
	if len(unsubs) != 1 || unsubs[0] != "*_200" {
		t.Errorf("UnsubscribeCalls() = %v, want [*_200]", unsubs)
	}

	// The live subscriber keeps receiving.
	b.Publish("channel_300", []byte(`{"event":"channel_create"}`))
	if d := recvDelivery(t, live); d.Channel != "channel_300" {
		t.Errorf("channel = %q, want channel_300", d.Channel)
	}
}

func TestMultiplexer_GCKeepsSharedPattern(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewMemoryBus()
	m := NewMultiplexer(b)
	m.Start(ctx)

	dead := make(chan Delivery)
	live := make(chan Delivery, 64)
	if err := m.Subscribe("conn-dead", "*_400", dead); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := m.Subscribe("conn-live", "*_400", live); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	waitFor(t, func() bool { return m.Stats().Subscribers == 2 }, "subscribers never registered")

	for i := 0; i < gcThreshold; i++ {
		b.Publish("role_400", []byte(`{"event":"role_update"}`))
		recvDelivery(t, live)
	}

	waitFor(t, func() bool { return m.Stats().Subscribers == 1 }, "dead subscriber never collected")

	// The pattern still has a live subscriber: no upstream unsubscribe.
	if unsubs := b.UnsubscribeCalls(); len(unsubs) != 0 {
		t.Errorf("UnsubscribeCalls() = %v, want none", unsubs)
	}
	if !b.Subscribed("*_400") {
		t.Error("shared pattern was unsubscribed upstream")
	}
}

func TestMultiplexer_ReconnectResubscribes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewMemoryBus()
	m := NewMultiplexer(b)
	m.Start(ctx)

	queue := make(chan Delivery, 8)
	if err := m.Subscribe("conn-a", "*_500", queue); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := m.Subscribe("conn-a", "*_42", queue); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	waitFor(t, func() bool { return m.Stats().Patterns == 2 }, "patterns never subscribed")

	b.Disconnect(errors.New("connection reset"))

	waitFor(t, func() bool { return b.Subscribed("*_500") && b.Subscribed("*_42") },
		"patterns not re-issued after reconnect")

	b.Publish("member_500", []byte(`{"event":"member_create"}`))
	if d := recvDelivery(t, queue); d.Channel != "member_500" {
		t.Errorf("channel = %q, want member_500", d.Channel)
	}
}

func TestMultiplexer_SubscribeAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	b := NewMemoryBus()
	m := NewMultiplexer(b)
	m.Start(ctx)
	cancel()

	<-m.stopped

	queue := make(chan Delivery, 1)
	err := m.Subscribe("conn-a", "*_1", queue)
	if !errors.Is(err, domain.ErrMuxStopped) {
		t.Errorf("Subscribe() error = %v, want ErrMuxStopped", err)
	}
}
