package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/relay-api/internal/api/shared"
	"github.com/phrazzld/relay-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
)

// stubJWTService accepts exactly one token.
type stubJWTService struct {
	valid string
	err   error
}

func (s *stubJWTService) GenerateToken(context.Context, string) (string, error) {
	return s.valid, nil
}

func (s *stubJWTService) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	if token != s.valid {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{Subject: "admin", TokenType: "access"}, nil
}

func (s *stubJWTService) TokenLifetime() time.Duration { return time.Hour }

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		authHeader     string
		query          string
		validateErr    error
		expectedStatus int
	}{
		{name: "valid token", authHeader: "Bearer good", expectedStatus: http.StatusOK},
		{name: "valid query token", query: "?access_token=good", expectedStatus: http.StatusOK},
		{name: "missing auth header", expectedStatus: http.StatusUnauthorized},
		{name: "invalid auth format", authHeader: "Token good", expectedStatus: http.StatusUnauthorized},
		{name: "empty bearer", authHeader: "Bearer ", expectedStatus: http.StatusUnauthorized},
		{name: "invalid token", authHeader: "Bearer bad", expectedStatus: http.StatusUnauthorized},
		{name: "expired token", authHeader: "Bearer good", validateErr: auth.ErrExpiredToken, expectedStatus: http.StatusUnauthorized},
		{name: "unexpected error", authHeader: "Bearer good", validateErr: errors.New("boom"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mw := NewAuthMiddleware(&stubJWTService{valid: "good", err: tt.validateErr})

			var subject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject, _ = GetSubject(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/tasks"+tt.query, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			mw.Authenticate(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "admin", subject)
			}
		})
	}
}

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
	})

	NewTraceMiddleware(nil)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, traceID, 32)
}
