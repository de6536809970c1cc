// Package gateway implements the per-connection engine of the real-time
// gateway: the identify handshake, the receive and transmit state
// machines, and the visibility filtering of routed events.
package gateway

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chatgate/chatgate/internal/auth"
	"github.com/chatgate/chatgate/internal/bus"
	"github.com/chatgate/chatgate/internal/store"
)

// Engine drives gateway connections. One Engine serves the whole process;
// every accepted socket gets its own pair of receive/transmit tasks.
type Engine struct {
	registry *Registry
	mux      *bus.Multiplexer
	store    store.Store
	verifier auth.Verifier
	filters  *Filters

	outboundBuffer int
	queueBuffer    int
}

// NewEngine creates a connection engine. registry, mux and store may be
// nil in degraded setups; connections then close with the matching 5xxx
// code at the point the missing collaborator is first needed.
func NewEngine(registry *Registry, mux *bus.Multiplexer, st store.Store, verifier auth.Verifier) *Engine {
	return &Engine{
		registry:       registry,
		mux:            mux,
		store:          st,
		verifier:       verifier,
		filters:        NewFilters(st),
		outboundBuffer: DefaultOutboundBuffer,
		queueBuffer:    DefaultQueueBuffer,
	}
}

// SetBuffers overrides the per-connection outbound and fan-out queue
// capacities. Non-positive values keep the defaults.
func (e *Engine) SetBuffers(outbound, queue int) {
	if outbound > 0 {
		e.outboundBuffer = outbound
	}
	if queue > 0 {
		e.queueBuffer = queue
	}
}

// HandleConn runs one already-accepted connection to completion: spawn the
// two tasks, wait for them, remove the registry entry, and send exactly
// one close frame with whichever close reason was produced first.
func (e *Engine) HandleConn(ctx context.Context, ws *websocket.Conn) {
	c := newConn(e.outboundBuffer)

	log.Info().
		Str("conn_id", c.ID()).
		Str("remote_addr", ws.RemoteAddr().String()).
		Msg("connection accepted")

	rx := &receiver{
		conn: c,
		ws:   ws,
		identify: &identifyHandler{
			verifier: e.verifier,
			store:    e.store,
			registry: e.registry,
		},
	}
	tx := &transmitter{
		conn:        c,
		ws:          ws,
		mux:         e.mux,
		store:       e.store,
		filters:     e.filters,
		queueBuffer: e.queueBuffer,
	}

	rxDone := make(chan struct{})
	txDone := make(chan struct{})
	go func() {
		defer close(rxDone)
		rx.run(ctx)
	}()
	go func() {
		defer close(txDone)
		tx.run(ctx)
	}()

	// The transmit task always exits once a close reason exists. The
	// receive task may still be parked in ReadMessage; closing the
	// transport below unblocks it.
	<-txDone
	<-c.closeSignal()
	reason := c.reason()

	frame := websocket.FormatCloseMessage(int(reason.Code), reason.Text)
	_ = ws.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
	_ = ws.Close()
	<-rxDone

	var userID uint64
	if e.registry != nil {
		userID, _ = e.registry.UserFor(c.ID())
		e.registry.Remove(c.ID())
	}

	evt := log.Debug()
	if reason.Code.Operational() {
		evt = log.Error()
	}
	if userID != 0 {
		evt = evt.Uint64("user_id", userID)
	}
	evt.
		Str("conn_id", c.ID()).
		Int("code", int(reason.Code)).
		Str("reason", reason.Text).
		Msg("connection closed")
}
