package gateway

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/chatgate/chatgate/internal/auth"
	"github.com/chatgate/chatgate/internal/domain"
	"github.com/chatgate/chatgate/internal/domain/events"
	"github.com/chatgate/chatgate/internal/store"
)

// identifyHandler performs the first-message authentication exchange:
// verify the bearer token, hydrate the user snapshot, and register the
// connection. Every failure is terminal for the connection; nothing here
// retries.
type identifyHandler struct {
	verifier auth.Verifier
	store    store.Store
	registry *Registry
}

func (h *identifyHandler) handle(ctx context.Context, c *Conn, ev events.Identify) (*domain.User, error) {
	if h.store == nil {
		return nil, domain.ErrDatabaseMissing
	}
	if h.registry == nil {
		return nil, domain.ErrRegistryMissing
	}

	userID, err := h.verifier.Verify(ctx, ev.Token)
	if err != nil {
		return nil, err
	}

	// Intents are accepted but currently informational only.
	if ev.Intents != 0 {
		log.Debug().
			Str("conn_id", c.ID()).
			Uint64("intents", ev.Intents).
			Msg("identify requested intents")
	}

	snapshot, err := h.store.UserSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.setUser(userID)
	h.registry.Register(c.ID(), userID)

	log.Info().
		Str("conn_id", c.ID()).
		Uint64("user_id", userID).
		Int("guilds", len(snapshot.Guilds)).
		Msg("connection identified")

	return snapshot, nil
}
