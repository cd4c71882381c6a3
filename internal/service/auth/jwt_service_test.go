package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

func newTestJWTService(t *testing.T, lifetime time.Duration, now func() time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newHMACJWTService(testSecret, lifetime, now)
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("non-expiring token", func(t *testing.T) {
		t.Parallel()
		svc := newTestJWTService(t, 0, func() time.Time { return fixedTime })

		token, err := svc.GenerateToken(context.Background(), userID)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, userID.String(), claims.Subject)
		assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
		assert.True(t, claims.ExpiresAt.IsZero())
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("token with lifetime", func(t *testing.T) {
		t.Parallel()
		svc := newTestJWTService(t, time.Hour, func() time.Time { return fixedTime })

		token, err := svc.GenerateToken(context.Background(), userID)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	})

	t.Run("tokens are unique", func(t *testing.T) {
		t.Parallel()
		svc := newTestJWTService(t, 0, func() time.Time { return fixedTime })

		first, err := svc.GenerateToken(context.Background(), userID)
		require.NoError(t, err)
		second, err := svc.GenerateToken(context.Background(), userID)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) (JWTService, string)
		wantErr   error
	}{
		{
			name: "expired token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				gen := newTestJWTService(t, time.Hour, func() time.Time { return fixedTime })
				token, err := gen.GenerateToken(context.Background(), userID)
				require.NoError(t, err)
				later := newTestJWTService(t, time.Hour, func() time.Time {
					return fixedTime.Add(2 * time.Hour)
				})
				return later, token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "wrong signature",
			setupFunc: func(t *testing.T) (JWTService, string) {
				other, err := newHMACJWTService("wrong-secret-that-is-long-enough-for-testing", 0, time.Now)
				require.NoError(t, err)
				token, err := other.GenerateToken(context.Background(), userID)
				require.NoError(t, err)
				return newTestJWTService(t, 0, time.Now), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				return newTestJWTService(t, 0, time.Now), "not.a.jwt"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "empty token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				return newTestJWTService(t, 0, time.Now), ""
			},
			wantErr: ErrMissingToken,
		},
		{
			name: "unsigned token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token := jwt.NewWithClaims(jwt.SigningMethodNone, jwtCustomClaims{UserID: userID})
				signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return newTestJWTService(t, 0, time.Now), signed
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "token without user",
			setupFunc: func(t *testing.T) (JWTService, string) {
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtCustomClaims{})
				signed, err := token.SignedString([]byte(testSecret))
				require.NoError(t, err)
				return newTestJWTService(t, 0, time.Now), signed
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc, token := tc.setupFunc(t)

			claims, err := svc.ValidateToken(context.Background(), token)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, claims)
		})
	}
}
