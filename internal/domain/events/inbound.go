// Package events defines all wire events exchanged over a gateway connection.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/chatgate/chatgate/internal/domain"
)

// Op identifies an inbound control event.
type Op string

const (
	OpIdentify Op = "identify"
	OpPing     Op = "ping"
	OpPong     Op = "pong"
)

// InboundEvent is the closed set of control events a client may send.
// Only Identify, Ping and Pong implement it.
type InboundEvent interface {
	inbound()
}

// Identify is the first-message authentication exchange. It must be the
// first event on every connection.
type Identify struct {
	Token   string `json:"token"`
	Intents uint64 `json:"intents"`
}

func (Identify) inbound() {}

// Ping is a client heartbeat. The gateway answers with a Pong.
type Ping struct{}

func (Ping) inbound() {}

// Pong is a client heartbeat echo. The gateway answers with a Ping.
type Pong struct{}

func (Pong) inbound() {}

// inboundFrame is the wire envelope for inbound control events.
type inboundFrame struct {
	Op   Op              `json:"op"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeInbound parses an inbound text frame into a control event.
// Unknown ops and invalid JSON map to domain.ErrMalformedPayload.
func DecodeInbound(data []byte) (InboundEvent, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	switch frame.Op {
	case OpIdentify:
		var ev Identify
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
		}
		return ev, nil
	case OpPing:
		return Ping{}, nil
	case OpPong:
		return Pong{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown op %q", domain.ErrMalformedPayload, frame.Op)
	}
}

// EncodeInbound serializes a control event for a client. Used by the
// deployment tests and by client tooling; the server itself only decodes.
func EncodeInbound(ev InboundEvent) ([]byte, error) {
	switch ev := ev.(type) {
	case Identify:
		data, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		return json.Marshal(inboundFrame{Op: OpIdentify, Data: data})
	case Ping:
		return json.Marshal(inboundFrame{Op: OpPing})
	case Pong:
		return json.Marshal(inboundFrame{Op: OpPong})
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrMalformedPayload, ev)
	}
}
