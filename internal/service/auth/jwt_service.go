package auth

import (
	"context"
	"time"
)

// JWTService issues and checks the bearer tokens that guard the task API.
type JWTService interface {
	GenerateToken(ctx context.Context, subject string) (string, error)

	// ValidateToken returns ErrExpiredToken, ErrTokenNotYetValid or
	// ErrWrongTokenType for those specific failures and ErrInvalidToken for
	// anything else.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	TokenLifetime() time.Duration
}

// Claims is the validated content of an access token.
type Claims struct {
	TokenType string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
