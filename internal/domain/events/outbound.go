package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chatgate/chatgate/internal/domain"
)

// EventType discriminates outbound events on the wire.
type EventType string

const (
	EventTypeIdentifyAccepted EventType = "identify_accepted"
	EventTypePing             EventType = "ping"
	EventTypePong             EventType = "pong"

	EventTypeMessageCreate EventType = "message_create"
	EventTypeMessageUpdate EventType = "message_update"
	EventTypeMessageDelete EventType = "message_delete"

	EventTypeChannelCreate EventType = "channel_create"
	EventTypeChannelUpdate EventType = "channel_update"
	EventTypeChannelDelete EventType = "channel_delete"

	EventTypeGuildCreate EventType = "guild_create"
	EventTypeGuildUpdate EventType = "guild_update"
	EventTypeGuildDelete EventType = "guild_delete"

	EventTypeMemberCreate EventType = "member_create"
	EventTypeMemberUpdate EventType = "member_update"
	EventTypeMemberDelete EventType = "member_delete"

	EventTypeInviteCreate EventType = "invite_create"
	EventTypeInviteDelete EventType = "invite_delete"

	EventTypeRoleCreate EventType = "role_create"
	EventTypeRoleUpdate EventType = "role_update"
	EventTypeRoleDelete EventType = "role_delete"

	EventTypeTypingStart EventType = "typing_start"
	EventTypeTypingEnd   EventType = "typing_end"
)

// OutboundEvent is the closed set of events the gateway sends to clients.
type OutboundEvent interface {
	Type() EventType
}

// IdentifyAccepted acknowledges a successful identify handshake and carries
// the hydrated user snapshot.
type IdentifyAccepted struct {
	User domain.User `json:"user"`
}

func (IdentifyAccepted) Type() EventType { return EventTypeIdentifyAccepted }

// Ping and Pong double as outbound heartbeat events.

func (Ping) Type() EventType { return EventTypePing }
func (Pong) Type() EventType { return EventTypePong }

// MessageCreate carries a newly created message.
type MessageCreate struct {
	Message domain.Message `json:"message"`
}

func (MessageCreate) Type() EventType { return EventTypeMessageCreate }

// MessageUpdate carries an edited message, both old and new state.
type MessageUpdate struct {
	Old domain.Message `json:"old"`
	New domain.Message `json:"new"`
}

func (MessageUpdate) Type() EventType { return EventTypeMessageUpdate }

// MessageDelete carries a deleted message.
type MessageDelete struct {
	Message domain.Message `json:"message"`
}

func (MessageDelete) Type() EventType { return EventTypeMessageDelete }

// ChannelCreate carries a newly created channel.
type ChannelCreate struct {
	Channel domain.Channel `json:"channel"`
}

func (ChannelCreate) Type() EventType { return EventTypeChannelCreate }

// ChannelUpdate carries a changed channel, both old and new state.
type ChannelUpdate struct {
	Old domain.Channel `json:"old"`
	New domain.Channel `json:"new"`
}

func (ChannelUpdate) Type() EventType { return EventTypeChannelUpdate }

// ChannelDelete carries a deleted channel.
type ChannelDelete struct {
	Channel domain.Channel `json:"channel"`
}

func (ChannelDelete) Type() EventType { return EventTypeChannelDelete }

// GuildCreate carries a newly created guild. It is routed to the owner
// rather than to guild subscribers.
type GuildCreate struct {
	Guild domain.Guild `json:"guild"`
}

func (GuildCreate) Type() EventType { return EventTypeGuildCreate }

// GuildUpdate carries a changed guild, both old and new state.
type GuildUpdate struct {
	Old domain.Guild `json:"old"`
	New domain.Guild `json:"new"`
}

func (GuildUpdate) Type() EventType { return EventTypeGuildUpdate }

// GuildDelete carries a deleted guild.
type GuildDelete struct {
	Guild domain.Guild `json:"guild"`
}

func (GuildDelete) Type() EventType { return EventTypeGuildDelete }

// MemberCreate carries a user joining a guild.
type MemberCreate struct {
	Member domain.Member `json:"member"`
}

func (MemberCreate) Type() EventType { return EventTypeMemberCreate }

// MemberUpdate carries a changed membership, both old and new state.
type MemberUpdate struct {
	Old domain.Member `json:"old"`
	New domain.Member `json:"new"`
}

func (MemberUpdate) Type() EventType { return EventTypeMemberUpdate }

// MemberDelete carries a user leaving or being removed from a guild.
type MemberDelete struct {
	Member domain.Member `json:"member"`
}

func (MemberDelete) Type() EventType { return EventTypeMemberDelete }

// InviteCreate carries a newly created invite.
type InviteCreate struct {
	Invite domain.Invite `json:"invite"`
}

func (InviteCreate) Type() EventType { return EventTypeInviteCreate }

// InviteDelete carries a deleted invite.
type InviteDelete struct {
	Invite domain.Invite `json:"invite"`
}

func (InviteDelete) Type() EventType { return EventTypeInviteDelete }

// RoleCreate carries a newly created role.
type RoleCreate struct {
	Role domain.Role `json:"role"`
}

func (RoleCreate) Type() EventType { return EventTypeRoleCreate }

// RoleUpdate carries a changed role, both old and new state.
type RoleUpdate struct {
	Old domain.Role `json:"old"`
	New domain.Role `json:"new"`
}

func (RoleUpdate) Type() EventType { return EventTypeRoleUpdate }

// RoleDelete carries a deleted role.
type RoleDelete struct {
	Role domain.Role `json:"role"`
}

func (RoleDelete) Type() EventType { return EventTypeRoleDelete }

// TypingStart signals that a user started typing in a guild.
type TypingStart struct {
	UserID  uint64 `json:"user_id"`
	GuildID uint64 `json:"guild_id"`
}

func (TypingStart) Type() EventType { return EventTypeTypingStart }

// TypingEnd signals that a user stopped typing in a guild.
type TypingEnd struct {
	UserID  uint64 `json:"user_id"`
	GuildID uint64 `json:"guild_id"`
}

func (TypingEnd) Type() EventType { return EventTypeTypingEnd }

// envelope is the wire format for outbound events.
type envelope struct {
	Event     EventType       `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Encode serializes an outbound event into its wire envelope.
func Encode(ev OutboundEvent) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	// Ping/Pong have no payload fields; keep their envelopes bare.
	if string(payload) == "{}" {
		payload = nil
	}
	return json.Marshal(envelope{
		Event:     ev.Type(),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

// SniffType extracts the event type from an encoded outbound envelope
// without decoding the payload. The transmit task uses it to classify
// routed events delivered by the multiplexer.
func SniffType(data []byte) (EventType, error) {
	var head struct {
		Event EventType `json:"event"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if head.Event == "" {
		return "", fmt.Errorf("%w: missing event type", domain.ErrMalformedPayload)
	}
	return head.Event, nil
}

// IsDelete reports whether the event type is a deletion. Deletions are
// always relayed to subscribed connections, bypassing the membership
// filter: a user must learn they were removed.
func IsDelete(t EventType) bool {
	switch t {
	case EventTypeMessageDelete, EventTypeChannelDelete, EventTypeGuildDelete,
		EventTypeMemberDelete, EventTypeInviteDelete, EventTypeRoleDelete:
		return true
	}
	return false
}
