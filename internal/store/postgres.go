package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatgate/chatgate/internal/domain"
)

var _ Store = (*Postgres)(nil)

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Store over an existing pool. The pool is owned by
// the caller.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// User loads a bare user row.
func (s *Postgres) User(ctx context.Context, id uint64) (*domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, avatar_url, flags, discriminator FROM users WHERE id = $1`,
		int64(id),
	).Scan(&u.ID, &u.Name, &u.AvatarURL, &u.Flags, &u.Discriminator)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, domain.NewStoreError("user", err)
	}
	return &u, nil
}

// UserSnapshot loads a user with guilds, channels and members hydrated.
func (s *Postgres) UserSnapshot(ctx context.Context, id uint64) (*domain.User, error) {
	u, err := s.User(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT g.id, g.owner_id, g.name
		   FROM guilds g
		   JOIN members m ON m.guild_id = g.id
		  WHERE m.user_id = $1
		  ORDER BY g.id`,
		int64(id),
	)
	if err != nil {
		return nil, domain.NewStoreError("user_snapshot", err)
	}
	defer rows.Close()

	for rows.Next() {
		var g domain.Guild
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name); err != nil {
			return nil, domain.NewStoreError("user_snapshot", err)
		}
		u.Guilds = append(u.Guilds, g)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("user_snapshot", err)
	}

	for i := range u.Guilds {
		if err := s.hydrateGuild(ctx, &u.Guilds[i]); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// hydrateGuild fills a guild's channels and members.
func (s *Postgres) hydrateGuild(ctx context.Context, g *domain.Guild) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id, guild_id, name FROM channels WHERE guild_id = $1 ORDER BY id`,
		int64(g.ID),
	)
	if err != nil {
		return domain.NewStoreError("guild_channels", err)
	}
	for rows.Next() {
		var c domain.Channel
		if err := rows.Scan(&c.ID, &c.GuildID, &c.Name); err != nil {
			rows.Close()
			return domain.NewStoreError("guild_channels", err)
		}
		g.Channels = append(g.Channels, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.NewStoreError("guild_channels", err)
	}

	rows, err = s.pool.Query(ctx,
		`SELECT user_id, guild_id FROM members WHERE guild_id = $1 ORDER BY user_id`,
		int64(g.ID),
	)
	if err != nil {
		return domain.NewStoreError("guild_members", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.GuildID); err != nil {
			return domain.NewStoreError("guild_members", err)
		}
		g.Members = append(g.Members, m)
	}
	if err := rows.Err(); err != nil {
		return domain.NewStoreError("guild_members", err)
	}
	return nil
}

// GuildIDs lists the ids of guilds the user belongs to.
func (s *Postgres) GuildIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT guild_id FROM members WHERE user_id = $1 ORDER BY guild_id`,
		int64(userID),
	)
	if err != nil {
		return nil, domain.NewStoreError("guild_ids", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, domain.NewStoreError("guild_ids", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("guild_ids", err)
	}
	return ids, nil
}

// IsMember reports whether the user belongs to the guild.
func (s *Postgres) IsMember(ctx context.Context, userID, guildID uint64) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM members WHERE user_id = $1 AND guild_id = $2)`,
		int64(userID), int64(guildID),
	).Scan(&ok)
	if err != nil {
		return false, domain.NewStoreError("is_member", err)
	}
	return ok, nil
}

// TokenSecret returns the stored token secret for a user.
func (s *Postgres) TokenSecret(ctx context.Context, userID uint64) (string, error) {
	var secret string
	err := s.pool.QueryRow(ctx,
		`SELECT secret FROM auth_tokens WHERE user_id = $1`,
		int64(userID),
	).Scan(&secret)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrTokenInvalid
	}
	if err != nil {
		return "", domain.NewStoreError("token_secret", err)
	}
	return secret, nil
}

// Ping verifies the store is reachable.
func (s *Postgres) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return domain.NewStoreError("ping", err)
	}
	return nil
}
