package gateway

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chatgate/chatgate/internal/domain/events"
)

// receiver is the per-connection receive task. It owns the read half of
// the socket: nothing else may call ReadMessage while it runs.
//
// State machine: AwaitingIdentify -> Authenticated -> Done. The
// write-once identify flag on Conn is the state; there is no separate
// variable to drift out of sync.
type receiver struct {
	conn     *Conn
	ws       *websocket.Conn
	identify *identifyHandler
}

// run reads frames until a protocol violation, an authentication failure
// or a peer disconnect, then signals the close reason and returns.
func (r *receiver) run(ctx context.Context) {
	r.ws.SetReadLimit(maxMessageSize)
	_ = r.ws.SetReadDeadline(time.Now().Add(pongWait))
	r.ws.SetPongHandler(func(string) error {
		_ = r.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		frameType, data, err := r.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn_id", r.conn.ID()).Msg("read error")
			}
			r.conn.signalClose(CloseReason{Code: CloseNormal, Text: "peer closed"})
			return
		}

		if frameType != websocket.TextMessage {
			r.conn.signalClose(CloseReason{Code: CloseUnsupported, Text: CloseUnsupported.String()})
			return
		}

		ev, err := events.DecodeInbound(data)
		if err != nil {
			log.Debug().Err(err).Str("conn_id", r.conn.ID()).Msg("undecodable frame")
			r.conn.signalClose(reasonFor(err))
			return
		}

		if !r.handle(ctx, ev) {
			return
		}

		select {
		case <-r.conn.closeSignal():
			return
		default:
		}
	}
}

// handle dispatches one control event. It returns false when the
// connection must terminate; the close reason has been signalled.
func (r *receiver) handle(ctx context.Context, ev events.InboundEvent) bool {
	switch ev := ev.(type) {
	case events.Identify:
		if !r.conn.tryIdentify() {
			r.conn.signalClose(CloseReason{Code: CloseDuplicateIdentify, Text: CloseDuplicateIdentify.String()})
			return false
		}
		snapshot, err := r.identify.handle(ctx, r.conn, ev)
		if err != nil {
			reason := reasonFor(err)
			if reason.Code.Operational() {
				log.Error().Err(err).Str("conn_id", r.conn.ID()).Msg("identify failed")
			} else {
				log.Debug().Err(err).Str("conn_id", r.conn.ID()).Msg("identify rejected")
			}
			r.conn.signalClose(reason)
			return false
		}
		return r.queue(events.IdentifyAccepted{User: *snapshot})

	case events.Ping:
		if !r.conn.isIdentified() {
			r.conn.signalClose(CloseReason{Code: CloseNotIdentified, Text: CloseNotIdentified.String()})
			return false
		}
		return r.queue(events.Pong{})

	case events.Pong:
		if !r.conn.isIdentified() {
			r.conn.signalClose(CloseReason{Code: CloseNotIdentified, Text: CloseNotIdentified.String()})
			return false
		}
		// Heartbeat echo.
		return r.queue(events.Ping{})

	default:
		r.conn.signalClose(CloseReason{Code: CloseUnsupported, Text: CloseUnsupported.String()})
		return false
	}
}

// queue forwards an event to the transmit task. A full internal queue
// means the client has stopped draining; the connection is closed rather
// than blocking the read loop.
func (r *receiver) queue(ev events.OutboundEvent) bool {
	if !r.conn.queueOutbound(ev) {
		log.Warn().Str("conn_id", r.conn.ID()).Msg("outbound queue full, closing")
		r.conn.signalClose(CloseReason{Code: CloseNormal, Text: "outbound queue full"})
		return false
	}
	return true
}
