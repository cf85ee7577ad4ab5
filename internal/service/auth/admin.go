package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/phrazzld/relay-api/internal/config"
	"github.com/phrazzld/relay-api/internal/platform/logger"
)

// LoginResult is a freshly issued access token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// AdminAuthenticator checks the single configured operator account and
// issues access tokens for it.
type AdminAuthenticator struct {
	username     string
	passwordHash string
	verifier     PasswordVerifier
	jwtService   JWTService
	timeFunc     func() time.Time
}

// NewAdminAuthenticator creates an AdminAuthenticator from the auth config.
func NewAdminAuthenticator(cfg config.AuthConfig, verifier PasswordVerifier, jwtService JWTService) *AdminAuthenticator {
	return &AdminAuthenticator{
		username:     cfg.AdminUsername,
		passwordHash: cfg.AdminPasswordHash,
		verifier:     verifier,
		jwtService:   jwtService,
		timeFunc:     time.Now,
	}
}

// Login verifies the credentials and returns a signed token for the admin.
func (a *AdminAuthenticator) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	log := logger.FromContext(ctx)

	// Compare the password even for an unknown username
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := a.verifier.Compare(a.passwordHash, password)
	if !userOK || passErr != nil {
		log.Debug("admin login rejected", "username_match", userOK)
		return nil, ErrInvalidCredentials
	}

	now := a.timeFunc()
	token, err := a.jwtService.GenerateToken(ctx, a.username)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: now.Add(a.jwtService.TokenLifetime()),
	}, nil
}
