package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chatgate/chatgate/internal/bus"
	"github.com/chatgate/chatgate/internal/domain"
	"github.com/chatgate/chatgate/internal/domain/events"
	"github.com/chatgate/chatgate/internal/store"
)

// transmitter is the per-connection transmit task. It owns the write half
// of the socket and merges three sources: the close signal (which always
// wins), the internal outbound queue, and, once subscribed, routed
// deliveries from the multiplexer.
type transmitter struct {
	conn        *Conn
	ws          *websocket.Conn
	mux         *bus.Multiplexer
	store       store.Store
	filters     *Filters
	queueBuffer int
}

// run writes frames until the close signal fires or a write fails. On
// every return path a close reason has been signalled.
func (t *transmitter) run(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// delivered stays nil until the lazy subscription after identify;
	// a nil channel never fires in the select below.
	var delivered chan bus.Delivery
	var userID uint64

	for {
		// Close signal wins over pending work.
		select {
		case <-t.conn.closeSignal():
			return
		default:
		}

		select {
		case <-t.conn.closeSignal():
			return

		case ev := <-t.conn.outbound:
			// Control/self events bypass filtering.
			if !t.write(ev) {
				return
			}
			if accepted, ok := ev.(events.IdentifyAccepted); ok {
				userID = accepted.User.ID
				queue, err := t.subscribe(ctx, accepted.User.ID)
				if err != nil {
					reason := reasonFor(err)
					log.Error().Err(err).
						Str("conn_id", t.conn.ID()).
						Msg("subscription setup failed")
					t.conn.signalClose(reason)
					return
				}
				delivered = queue
			}

		case d := <-delivered:
			if !t.relay(ctx, userID, d) {
				return
			}

		case <-ticker.C:
			_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("conn_id", t.conn.ID()).Msg("ping error")
				t.conn.signalClose(CloseReason{Code: CloseNormal, Text: "write failed"})
				return
			}
		}
	}
}

// subscribe performs the lazy subscription: one pattern per guild the user
// belongs to, plus one wildcarded around the user id for events addressed
// to the user directly. The returned queue is reused for the rest of the
// connection.
func (t *transmitter) subscribe(ctx context.Context, userID uint64) (chan bus.Delivery, error) {
	if t.mux == nil {
		return nil, domain.ErrBusMissing
	}
	if t.store == nil {
		return nil, domain.ErrDatabaseMissing
	}

	guildIDs, err := t.store.GuildIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	queue := make(chan bus.Delivery, t.queueBuffer)
	for _, guildID := range guildIDs {
		if err := t.mux.Subscribe(t.conn.ID(), GuildPattern(guildID), queue); err != nil {
			return nil, err
		}
	}
	if err := t.mux.Subscribe(t.conn.ID(), UserPattern(userID), queue); err != nil {
		return nil, err
	}

	log.Debug().
		Str("conn_id", t.conn.ID()).
		Uint64("user_id", userID).
		Int("guilds", len(guildIDs)).
		Msg("subscribed to routed events")

	return queue, nil
}

// relay applies the visibility filter to one routed delivery and forwards
// the payload verbatim when it passes. It returns false when the
// connection must terminate.
func (t *transmitter) relay(ctx context.Context, userID uint64, d bus.Delivery) bool {
	route, err := ParseRoute(d.Channel)
	if err != nil {
		reason := reasonFor(err)
		log.Error().Err(err).
			Str("conn_id", t.conn.ID()).
			Str("channel", d.Channel).
			Msg("unparseable routing key")
		t.conn.signalClose(reason)
		return false
	}

	typ, err := events.SniffType(d.Payload)
	if err != nil {
		// Publisher bug: drop the event, keep the connection.
		log.Error().Err(err).
			Str("conn_id", t.conn.ID()).
			Str("channel", d.Channel).
			Msg("routed payload has no event type, dropping")
		return true
	}

	if !t.filters.Visible(ctx, userID, route, typ) {
		return true
	}

	return t.writeRaw(d.Payload)
}

// write serializes and sends one outbound event.
func (t *transmitter) write(ev events.OutboundEvent) bool {
	data, err := events.Encode(ev)
	if err != nil {
		log.Error().Err(err).
			Str("conn_id", t.conn.ID()).
			Str("event", string(ev.Type())).
			Msg("event encoding failed, dropping")
		return true
	}
	return t.writeRaw(data)
}

// writeRaw sends one already-encoded frame.
func (t *transmitter) writeRaw(data []byte) bool {
	_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := t.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debug().Err(err).Str("conn_id", t.conn.ID()).Msg("write error")
		t.conn.signalClose(CloseReason{Code: CloseNormal, Text: fmt.Sprintf("write failed: %v", err)})
		return false
	}
	return true
}
