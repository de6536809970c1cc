package events

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/chatgate/chatgate/internal/domain"
)

func TestDecodeInbound_Identify(t *testing.T) {
	data := []byte(`{"op":"identify","data":{"token":"42.s3cret","intents":7}}`)

	ev, err := DecodeInbound(data)
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}

	identify, ok := ev.(Identify)
	if !ok {
		t.Fatalf("expected Identify, got %T", ev)
	}
	if identify.Token != "42.s3cret" {
		t.Errorf("Token = %q, want %q", identify.Token, "42.s3cret")
	}
	if identify.Intents != 7 {
		t.Errorf("Intents = %d, want 7", identify.Intents)
	}
}

func TestDecodeInbound_PingPong(t *testing.T) {
	ev, err := DecodeInbound([]byte(`{"op":"ping"}`))
	if err != nil {
		t.Fatalf("DecodeInbound(ping) error = %v", err)
	}
	if _, ok := ev.(Ping); !ok {
		t.Errorf("expected Ping, got %T", ev)
	}

	ev, err = DecodeInbound([]byte(`{"op":"pong"}`))
	if err != nil {
		t.Fatalf("DecodeInbound(pong) error = %v", err)
	}
	if _, ok := ev.(Pong); !ok {
		t.Errorf("expected Pong, got %T", ev)
	}
}

func TestDecodeInbound_Malformed(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"invalid json", `{"op":`},
		{"unknown op", `{"op":"subscribe"}`},
		{"bad identify data", `{"op":"identify","data":{"token":5}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeInbound([]byte(tc.data))
			if !errors.Is(err, domain.ErrMalformedPayload) {
				t.Errorf("error = %v, want ErrMalformedPayload", err)
			}
		})
	}
}

func TestEncodeInbound_RoundTrip(t *testing.T) {
	data, err := EncodeInbound(Identify{Token: "1.abc", Intents: 3})
	if err != nil {
		t.Fatalf("EncodeInbound() error = %v", err)
	}

	ev, err := DecodeInbound(data)
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}
	if identify, ok := ev.(Identify); !ok || identify.Token != "1.abc" {
		t.Errorf("round trip produced %#v", ev)
	}
}

func TestEncode_Envelope(t *testing.T) {
	data, err := Encode(MessageCreate{Message: domain.Message{
		ID:        10,
		ChannelID: 20,
		GuildID:   30,
		AuthorID:  40,
		Content:   "hello",
	}})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var env struct {
		Event   EventType `json:"event"`
		Payload struct {
			Message domain.Message `json:"message"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Event != EventTypeMessageCreate {
		t.Errorf("event = %q, want %q", env.Event, EventTypeMessageCreate)
	}
	if env.Payload.Message.Content != "hello" {
		t.Errorf("payload content = %q, want %q", env.Payload.Message.Content, "hello")
	}
}

func TestEncode_BareControlEvents(t *testing.T) {
	data, err := Encode(Pong{})
	if err != nil {
		t.Fatalf("Encode(Pong) error = %v", err)
	}
	if strings.Contains(string(data), "payload") {
		t.Errorf("pong envelope should omit payload, got %s", data)
	}
}

func TestSniffType(t *testing.T) {
	data, err := Encode(MemberDelete{Member: domain.Member{UserID: 1, GuildID: 2}})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	typ, err := SniffType(data)
	if err != nil {
		t.Fatalf("SniffType() error = %v", err)
	}
	if typ != EventTypeMemberDelete {
		t.Errorf("type = %q, want %q", typ, EventTypeMemberDelete)
	}

	if _, err := SniffType([]byte(`{}`)); !errors.Is(err, domain.ErrMalformedPayload) {
		t.Errorf("SniffType({}) error = %v, want ErrMalformedPayload", err)
	}
}

func TestIsDelete(t *testing.T) {
	deletes := []EventType{
		EventTypeMessageDelete, EventTypeChannelDelete, EventTypeGuildDelete,
		EventTypeMemberDelete, EventTypeInviteDelete, EventTypeRoleDelete,
	}
	for _, typ := range deletes {
		if !IsDelete(typ) {
			t.Errorf("IsDelete(%s) = false, want true", typ)
		}
	}

	for _, typ := range []EventType{EventTypeMessageCreate, EventTypeTypingEnd, EventTypePong} {
		if IsDelete(typ) {
			t.Errorf("IsDelete(%s) = true, want false", typ)
		}
	}
}

func TestEncode_AllVariants(t *testing.T) {
	variants := []OutboundEvent{
		IdentifyAccepted{}, Ping{}, Pong{},
		MessageCreate{}, MessageUpdate{}, MessageDelete{},
		ChannelCreate{}, ChannelUpdate{}, ChannelDelete{},
		GuildCreate{}, GuildUpdate{}, GuildDelete{},
		MemberCreate{}, MemberUpdate{}, MemberDelete{},
		InviteCreate{}, InviteDelete{},
		RoleCreate{}, RoleUpdate{}, RoleDelete{},
		TypingStart{}, TypingEnd{},
	}

	seen := make(map[EventType]bool)
	for _, ev := range variants {
		data, err := Encode(ev)
		if err != nil {
			t.Fatalf("Encode(%T) error = %v", ev, err)
		}
		typ, err := SniffType(data)
		if err != nil {
			t.Fatalf("SniffType(%T) error = %v", ev, err)
		}
		if typ != ev.Type() {
			t.Errorf("%T sniffed as %q, want %q", ev, typ, ev.Type())
		}
		if seen[typ] {
			t.Errorf("duplicate event type %q", typ)
		}
		seen[typ] = true
	}
}
