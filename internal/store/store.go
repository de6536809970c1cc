// Package store provides access to the relational chat store. The gateway
// only reads: membership checks for event visibility and user hydration at
// identify time. All writes happen in the HTTP API, outside this process.
package store

import (
	"context"

	"github.com/chatgate/chatgate/internal/domain"
)

// Store is the read surface the gateway needs.
type Store interface {
	// User loads a bare user row.
	User(ctx context.Context, id uint64) (*domain.User, error)

	// UserSnapshot loads a user with all guild memberships hydrated,
	// including each guild's channels and members. Built once per
	// connection for the identify-accepted event.
	UserSnapshot(ctx context.Context, id uint64) (*domain.User, error)

	// GuildIDs lists the ids of guilds the user belongs to.
	GuildIDs(ctx context.Context, userID uint64) ([]uint64, error)

	// IsMember reports whether the user belongs to the guild.
	IsMember(ctx context.Context, userID, guildID uint64) (bool, error)

	// TokenSecret returns the stored token secret for a user. The auth
	// verifier compares it against the presented token.
	TokenSecret(ctx context.Context, userID uint64) (string, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
