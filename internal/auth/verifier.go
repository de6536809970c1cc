package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/chatgate/chatgate/internal/domain"
	"github.com/chatgate/chatgate/internal/store"
)

// Verifier validates a bearer token and resolves the authenticated user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (uint64, error)
}

// StoreVerifier verifies tokens against secrets held in the store.
//
// Every client-caused failure maps to domain.ErrTokenInvalid: no
// distinction is exposed between "no such user", "malformed token" and
// "wrong secret", so the handshake cannot be used as an account oracle.
// Store failures pass through unchanged; they are infrastructure errors,
// not rejections.
type StoreVerifier struct {
	store store.Store
}

var _ Verifier = (*StoreVerifier)(nil)

// NewStoreVerifier creates a verifier over the given store.
func NewStoreVerifier(s store.Store) *StoreVerifier {
	return &StoreVerifier{store: s}
}

// Verify checks the token and returns the user id it belongs to.
func (v *StoreVerifier) Verify(ctx context.Context, token string) (uint64, error) {
	userID, secret, err := SplitToken(token)
	if err != nil {
		return 0, domain.ErrTokenInvalid
	}

	stored, err := v.store.TokenSecret(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return 0, domain.ErrTokenInvalid
		}
		return 0, err
	}

	if subtle.ConstantTimeCompare([]byte(secret), []byte(stored)) != 1 {
		return 0, domain.ErrTokenInvalid
	}
	return userID, nil
}
