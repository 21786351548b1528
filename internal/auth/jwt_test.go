package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

const testSecret = "test-secret-0123456789"

func TestIssueAndValidate(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	user := &models.User{ID: 7, Email: "owner@example.com", Role: models.RoleOwner}

	token, expires, err := tokens.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	id, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id.UserID)
	assert.Equal(t, "owner@example.com", id.Email)
	assert.True(t, id.IsOwner())
}

func TestValidate_Rejects(t *testing.T) {
	tokens := NewTokens(testSecret, time.Hour)
	user := &models.User{ID: 7, Email: "kim@example.com", Role: models.RoleCustomer}
	good, _, err := tokens.Issue(user)
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := tokens.Validate("  ")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens("another-secret-abcdefgh", time.Hour)
		_, err := other.Validate(good)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokens(testSecret, time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, _, err := past.Issue(user)
		require.NoError(t, err)

		_, err = tokens.Validate(old)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := Claims{
			Role: "superuser",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = tokens.Validate(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := Claims{
			Role:             "customer",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "7", Issuer: issuer},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = tokens.Validate(forged)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}
