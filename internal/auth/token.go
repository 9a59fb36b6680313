package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Token format: bl_<64 hex chars>
// Example: bl_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const tokenSecretLen = 32 // raw bytes, hex encoded to 64 chars

// ErrInvalidTokenFormat indicates the token format is invalid.
var ErrInvalidTokenFormat = errors.New("invalid session token format")

var tokenFormatRegex = regexp.MustCompile(`^bl_[a-f0-9]{64}$`)

// GenerateSessionToken creates a new opaque login token.
// The token carries no identity itself; it is only a lookup key for the
// session record in Redis.
func GenerateSessionToken() (string, error) {
	secret := make([]byte, tokenSecretLen)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return "bl_" + hex.EncodeToString(secret), nil
}

// ValidateTokenFormat checks that a presented token has the expected shape
// before any store lookup is attempted.
func ValidateTokenFormat(token string) error {
	if !tokenFormatRegex.MatchString(token) {
		return ErrInvalidTokenFormat
	}
	return nil
}
