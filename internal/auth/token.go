// Package auth implements the gateway's bearer-token verification.
//
// A token is "<user id>.<secret>": a decimal snowflake, a dot, and an
// opaque secret issued at login. The gateway never issues tokens; it only
// verifies them against the store.
package auth

import (
	"strconv"
	"strings"

	"github.com/chatgate/chatgate/internal/domain"
)

// SplitToken splits a bearer token into its user id and secret parts.
// Returns domain.ErrTokenMalformed when the token does not match the
// grammar.
func SplitToken(token string) (uint64, string, error) {
	idPart, secret, found := strings.Cut(token, ".")
	if !found || idPart == "" || secret == "" {
		return 0, "", domain.ErrTokenMalformed
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return 0, "", domain.ErrTokenMalformed
	}
	return id, secret, nil
}
