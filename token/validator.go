// Package token inspects JWT access tokens on the client side. Tokens are
// decoded without signature verification: the server is the authority on
// validity, this package only answers "is this worth sending at all".
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// Claims is the decoded payload of an access token.
type Claims struct {
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Decode parses the token payload without verifying its signature.
// It returns nil on malformed input, never an error.
func Decode(raw string) *Claims {
	if raw == "" {
		return nil
	}
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		log.Debug().Err(err).Msg("Failed to decode token payload")
		return nil
	}
	return &claims
}

// IsExpired reports whether the token's exp claim is in the past.
// A missing or unparseable expiry counts as expired.
func IsExpired(raw string) bool {
	claims := Decode(raw)
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return !time.Now().Before(claims.ExpiresAt.Time)
}
