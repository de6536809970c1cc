package store

import (
	"context"
	"sync"

	"github.com/chatgate/chatgate/internal/domain"
)

var _ Store = (*Memory)(nil)

// Memory is an in-memory Store for tests and local development.
type Memory struct {
	mu      sync.RWMutex
	users   map[uint64]domain.User
	guilds  map[uint64]domain.Guild
	members map[uint64]map[uint64]struct{} // guild id -> user ids
	secrets map[uint64]string

	// FailWith, when set, makes every query fail with the given error.
	// Used to exercise infrastructure-failure paths.
	failWith error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[uint64]domain.User),
		guilds:  make(map[uint64]domain.Guild),
		members: make(map[uint64]map[uint64]struct{}),
		secrets: make(map[uint64]string),
	}
}

// AddUser inserts or replaces a user row.
func (s *Memory) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Guilds = nil
	s.users[u.ID] = u
}

// AddGuild inserts or replaces a guild, including its channels.
func (s *Memory) AddGuild(g domain.Guild) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[g.ID] = g
	if s.members[g.ID] == nil {
		s.members[g.ID] = make(map[uint64]struct{})
	}
}

// AddMember records a user's membership in a guild.
func (s *Memory) AddMember(userID, guildID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[guildID] == nil {
		s.members[guildID] = make(map[uint64]struct{})
	}
	s.members[guildID][userID] = struct{}{}
}

// RemoveMember deletes a user's membership in a guild.
func (s *Memory) RemoveMember(userID, guildID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members[guildID], userID)
}

// SetTokenSecret records a user's token secret.
func (s *Memory) SetTokenSecret(userID uint64, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[userID] = secret
}

// FailWith makes every subsequent query fail with err. Pass nil to clear.
func (s *Memory) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// User loads a bare user row.
func (s *Memory) User(_ context.Context, id uint64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, domain.NewStoreError("user", s.failWith)
	}
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

// UserSnapshot loads a user with guilds, channels and members hydrated.
func (s *Memory) UserSnapshot(_ context.Context, id uint64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, domain.NewStoreError("user_snapshot", s.failWith)
	}
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	for guildID, userIDs := range s.members {
		if _, member := userIDs[id]; !member {
			continue
		}
		g, ok := s.guilds[guildID]
		if !ok {
			continue
		}
		for userID := range userIDs {
			g.Members = append(g.Members, domain.Member{UserID: userID, GuildID: guildID})
		}
		u.Guilds = append(u.Guilds, g)
	}
	return &u, nil
}

// GuildIDs lists the ids of guilds the user belongs to.
func (s *Memory) GuildIDs(_ context.Context, userID uint64) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, domain.NewStoreError("guild_ids", s.failWith)
	}
	var ids []uint64
	for guildID, userIDs := range s.members {
		if _, ok := userIDs[userID]; ok {
			ids = append(ids, guildID)
		}
	}
	return ids, nil
}

// IsMember reports whether the user belongs to the guild.
func (s *Memory) IsMember(_ context.Context, userID, guildID uint64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return false, domain.NewStoreError("is_member", s.failWith)
	}
	_, ok := s.members[guildID][userID]
	return ok, nil
}

// TokenSecret returns the stored token secret for a user.
func (s *Memory) TokenSecret(_ context.Context, userID uint64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return "", domain.NewStoreError("token_secret", s.failWith)
	}
	secret, ok := s.secrets[userID]
	if !ok {
		return "", domain.ErrTokenInvalid
	}
	return secret, nil
}

// Ping verifies the store is reachable.
func (s *Memory) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return domain.NewStoreError("ping", s.failWith)
	}
	return nil
}
