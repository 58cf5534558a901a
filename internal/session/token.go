package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingExpiry = errors.New("token has no expiry claim")
	ErrExpired       = errors.New("token has expired")
)

type claims struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// Decode reads the token's claims without verifying its signature. The
// resulting identity is for display only: the booking API verifies the
// token on every request it authorizes.
func Decode(raw string, now time.Time) (domain.Credential, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return domain.Credential{}, fmt.Errorf("decode token: %w", err)
	}
	if c.ExpiresAt == nil {
		return domain.Credential{}, ErrMissingExpiry
	}

	cred := domain.Credential{
		Raw: raw,
		Identity: domain.Identity{
			Email:   c.Subject,
			Name:    c.Name,
			Picture: c.Picture,
		},
		ExpiresAt: c.ExpiresAt.Time,
	}
	if cred.ExpiredAt(now) {
		return domain.Credential{}, ErrExpired
	}
	return cred, nil
}
