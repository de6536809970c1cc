package gateway

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chatgate/chatgate/internal/domain"
)

// Category is the event category encoded in a routing key prefix.
type Category int

const (
	CategoryMessage Category = iota
	CategoryChannel
	CategoryGuild
	CategoryGuildCreate
	CategoryMember
	CategoryInvite
	CategoryRole
	CategoryTyping
)

func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "message"
	case CategoryChannel:
		return "channel"
	case CategoryGuild:
		return "guild"
	case CategoryGuildCreate:
		return "guild_create"
	case CategoryMember:
		return "member"
	case CategoryInvite:
		return "invite"
	case CategoryRole:
		return "role"
	case CategoryTyping:
		return "typing"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Route is a parsed routing key. The ids are taken from the key itself,
// never from transport data.
type Route struct {
	Category  Category
	ChannelID uint64 // message events only
	GuildID   uint64 // every category except guild-create
	OwnerID   uint64 // guild-create only
}

// ParseRoute parses a routing key per the underscore-delimited grammar:
//
//	message_<channel>_<guild>   channel_<guild>   guild_<guild>
//	gc_<owner>                  member_<guild>    invite_<guild>
//	role_<guild>                typing_<guild>
func ParseRoute(key string) (Route, error) {
	prefix, rest, found := strings.Cut(key, "_")
	if !found {
		return Route{}, fmt.Errorf("%w: no prefix in %q", domain.ErrMalformedPayload, key)
	}

	switch prefix {
	case "message":
		channelPart, guildPart, found := strings.Cut(rest, "_")
		if !found {
			return Route{}, fmt.Errorf("%w: message key %q needs channel and guild ids", domain.ErrMalformedPayload, key)
		}
		channelID, err := parseID(channelPart)
		if err != nil {
			return Route{}, err
		}
		guildID, err := parseID(guildPart)
		if err != nil {
			return Route{}, err
		}
		return Route{Category: CategoryMessage, ChannelID: channelID, GuildID: guildID}, nil

	case "gc":
		ownerID, err := parseID(rest)
		if err != nil {
			return Route{}, err
		}
		return Route{Category: CategoryGuildCreate, OwnerID: ownerID}, nil

	case "channel", "guild", "member", "invite", "role", "typing":
		guildID, err := parseID(rest)
		if err != nil {
			return Route{}, err
		}
		var category Category
		switch prefix {
		case "channel":
			category = CategoryChannel
		case "guild":
			category = CategoryGuild
		case "member":
			category = CategoryMember
		case "invite":
			category = CategoryInvite
		case "role":
			category = CategoryRole
		case "typing":
			category = CategoryTyping
		}
		return Route{Category: category, GuildID: guildID}, nil

	default:
		return Route{}, fmt.Errorf("%w: unknown prefix %q", domain.ErrMalformedPayload, prefix)
	}
}

// parseID parses one decimal id field. Anything that does not fit a uint64
// is an overflow: routing keys are machine-generated, so a bad field means
// a publisher upcast an id past 64 bits.
func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrIDOverflow, s)
	}
	return id, nil
}

// Routing key constructors, used by publishers and tests. Kept beside the
// parser so the grammar lives in one place.

// MessageKey routes message create/update/delete events.
func MessageKey(channelID, guildID uint64) string {
	return fmt.Sprintf("message_%d_%d", channelID, guildID)
}

// ChannelKey routes channel create/update/delete events.
func ChannelKey(guildID uint64) string {
	return fmt.Sprintf("channel_%d", guildID)
}

// GuildKey routes guild update/delete events.
func GuildKey(guildID uint64) string {
	return fmt.Sprintf("guild_%d", guildID)
}

// GuildCreateKey routes guild creation to the owner, not guild subscribers.
func GuildCreateKey(ownerID uint64) string {
	return fmt.Sprintf("gc_%d", ownerID)
}

// MemberKey routes member create/update/delete events.
func MemberKey(guildID uint64) string {
	return fmt.Sprintf("member_%d", guildID)
}

// InviteKey routes invite create/delete events.
func InviteKey(guildID uint64) string {
	return fmt.Sprintf("invite_%d", guildID)
}

// RoleKey routes role create/update/delete events.
func RoleKey(guildID uint64) string {
	return fmt.Sprintf("role_%d", guildID)
}

// TypingKey routes typing start/end events.
func TypingKey(guildID uint64) string {
	return fmt.Sprintf("typing_%d", guildID)
}

// GuildPattern is the subscription pattern matching every routing key that
// ends in the guild id.
func GuildPattern(guildID uint64) string {
	return fmt.Sprintf("*_%d", guildID)
}

// UserPattern is the subscription pattern matching keys addressed to the
// user directly (guild creation).
func UserPattern(userID uint64) string {
	return fmt.Sprintf("*_%d", userID)
}
