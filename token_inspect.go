package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo carries the unverified claims surfaced for diagnostics.
type TokenInfo struct {
	Subject   string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// InspectToken parses raw as a JWT without verifying its signature and
// returns the identifying claims. Verification is the backend's job; this
// exists so logs can name the subject and expiry of the token in flight.
// Opaque (non-JWT) tokens return an error and are still perfectly valid
// bearer tokens.
func InspectToken(raw string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}

	info := &TokenInfo{}

	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		info.IssuedAt = &t
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
	}

	return info, nil
}
