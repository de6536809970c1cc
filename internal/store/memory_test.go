package store

import (
	"context"
	"errors"
	"testing"

	"github.com/chatgate/chatgate/internal/domain"
)

func newPopulatedStore() *Memory {
	s := NewMemory()
	s.AddUser(domain.User{ID: 1, Name: "alice"})
	s.AddUser(domain.User{ID: 2, Name: "bob"})
	s.AddGuild(domain.Guild{ID: 100, OwnerID: 1, Name: "general", Channels: []domain.Channel{
		{ID: 7, GuildID: 100, Name: "lobby"},
	}})
	s.AddMember(1, 100)
	s.AddMember(2, 100)
	s.SetTokenSecret(1, "s3cret")
	return s
}

func TestMemory_UserSnapshot(t *testing.T) {
	s := newPopulatedStore()
	ctx := context.Background()

	u, err := s.UserSnapshot(ctx, 1)
	if err != nil {
		t.Fatalf("UserSnapshot() error = %v", err)
	}
	if u.Name != "alice" {
		t.Errorf("Name = %q, want alice", u.Name)
	}
	if len(u.Guilds) != 1 {
		t.Fatalf("len(Guilds) = %d, want 1", len(u.Guilds))
	}
	g := u.Guilds[0]
	if g.ID != 100 || len(g.Channels) != 1 || len(g.Members) != 2 {
		t.Errorf("guild not hydrated: %+v", g)
	}
}

func TestMemory_UserSnapshot_NotFound(t *testing.T) {
	s := newPopulatedStore()
	if _, err := s.UserSnapshot(context.Background(), 999); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

func TestMemory_Membership(t *testing.T) {
	s := newPopulatedStore()
	ctx := context.Background()

	ok, err := s.IsMember(ctx, 2, 100)
	if err != nil || !ok {
		t.Errorf("IsMember(2, 100) = %v, %v; want true, nil", ok, err)
	}

	s.RemoveMember(2, 100)

	ok, err = s.IsMember(ctx, 2, 100)
	if err != nil || ok {
		t.Errorf("IsMember(2, 100) after removal = %v, %v; want false, nil", ok, err)
	}

	ids, err := s.GuildIDs(ctx, 1)
	if err != nil || len(ids) != 1 || ids[0] != 100 {
		t.Errorf("GuildIDs(1) = %v, %v; want [100], nil", ids, err)
	}
}

func TestMemory_TokenSecret(t *testing.T) {
	s := newPopulatedStore()
	ctx := context.Background()

	secret, err := s.TokenSecret(ctx, 1)
	if err != nil || secret != "s3cret" {
		t.Errorf("TokenSecret(1) = %q, %v; want s3cret, nil", secret, err)
	}

	if _, err := s.TokenSecret(ctx, 2); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("TokenSecret(2) error = %v, want ErrTokenInvalid", err)
	}
}

func TestMemory_FailWith(t *testing.T) {
	s := newPopulatedStore()
	ctx := context.Background()
	s.FailWith(errors.New("connection refused"))

	if _, err := s.IsMember(ctx, 1, 100); !errors.Is(err, domain.ErrDatabase) {
		t.Errorf("IsMember error = %v, want ErrDatabase", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, domain.ErrDatabase) {
		t.Errorf("Ping error = %v, want ErrDatabase", err)
	}

	s.FailWith(nil)
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping after clear error = %v", err)
	}
}
