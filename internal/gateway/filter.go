package gateway

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/chatgate/chatgate/internal/domain/events"
	"github.com/chatgate/chatgate/internal/store"
)

// Filters decides, per event category, whether a routed event is visible
// to an authenticated user. One membership check against the store per
// routed event; no caching.
type Filters struct {
	store store.Store
}

// NewFilters creates the visibility filter set.
func NewFilters(s store.Store) *Filters {
	return &Filters{store: s}
}

// Visible reports whether the routed event may be relayed to the user.
//
// Deletion events are always visible: a user must learn they were removed
// even when the membership check would now fail. All other events require
// an affirmative membership check. A failed store query counts as not
// visible, but is logged as an operational error so an outage does not
// silently read as a wall of permission denials.
func (f *Filters) Visible(ctx context.Context, userID uint64, route Route, typ events.EventType) bool {
	if events.IsDelete(typ) {
		return true
	}

	switch route.Category {
	case CategoryGuildCreate:
		// Delivered to the owner, not to guild subscribers.
		return route.OwnerID == userID

	case CategoryMessage, CategoryChannel, CategoryGuild,
		CategoryMember, CategoryInvite, CategoryRole, CategoryTyping:
		ok, err := f.store.IsMember(ctx, userID, route.GuildID)
		if err != nil {
			log.Error().
				Err(err).
				Uint64("user_id", userID).
				Uint64("guild_id", route.GuildID).
				Str("category", route.Category.String()).
				Msg("membership check failed, withholding event")
			return false
		}
		return ok

	default:
		log.Error().
			Str("category", route.Category.String()).
			Msg("no visibility filter for category")
		return false
	}
}
