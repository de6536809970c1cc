package gateway

import (
	"testing"

	"github.com/chatgate/chatgate/internal/domain/events"
)

func TestConn_TryIdentifyOnce(t *testing.T) {
	c := newConn(1)
	if !c.tryIdentify() {
		t.Fatal("first tryIdentify should succeed")
	}
	if c.tryIdentify() {
		t.Fatal("second tryIdentify should fail")
	}
	if !c.isIdentified() {
		t.Fatal("isIdentified should be true after tryIdentify")
	}
}

func TestConn_CloseSignalFirstWriterWins(t *testing.T) {
	c := newConn(1)

	select {
	case <-c.closeSignal():
		t.Fatal("close signal fired before signalClose")
	default:
	}

	c.signalClose(CloseReason{Code: CloseTokenInvalid, Text: "first"})
	c.signalClose(CloseReason{Code: CloseNormal, Text: "second"})

	select {
	case <-c.closeSignal():
	default:
		t.Fatal("close signal did not fire")
	}

	if got := c.reason(); got.Code != CloseTokenInvalid || got.Text != "first" {
		t.Errorf("reason = %+v, want first writer's reason", got)
	}
}

func TestConn_QueueOutboundFull(t *testing.T) {
	c := newConn(1)
	if !c.queueOutbound(events.Pong{}) {
		t.Fatal("first enqueue should fit")
	}
	if c.queueOutbound(events.Pong{}) {
		t.Fatal("second enqueue should report a full queue")
	}
}

func TestConn_UserID(t *testing.T) {
	c := newConn(1)
	if c.user() != 0 {
		t.Fatal("user id should be zero before identify")
	}
	c.setUser(42)
	if c.user() != 42 {
		t.Errorf("user() = %d, want 42", c.user())
	}
}
