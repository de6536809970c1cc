package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// secretBytes is the entropy of a generated token secret.
const secretBytes = 24

// GenerateSecret returns a new random token secret. The serving path never
// calls this; it exists for the operator CLI and for provisioning tooling.
func GenerateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// FormatToken builds the bearer token for a user id and secret.
func FormatToken(userID uint64, secret string) string {
	return fmt.Sprintf("%d.%s", userID, secret)
}
