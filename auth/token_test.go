package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager(t *testing.T) {
	tokens := NewTokenManager("test-signing-secret")

	t.Run("issue and verify round trip", func(t *testing.T) {
		token, err := tokens.IssueToken("user-1", "a@x.com")
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims := tokens.VerifyToken(token)
		require.NotNil(t, claims)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "a@x.com", claims.Email)
		assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("garbage is nil, not an error", func(t *testing.T) {
		assert.Nil(t, tokens.VerifyToken("not.a.token"))
		assert.Nil(t, tokens.VerifyToken(""))
	})

	t.Run("wrong signing key is rejected", func(t *testing.T) {
		token, err := tokens.IssueToken("user-1", "a@x.com")
		require.NoError(t, err)

		other := NewTokenManager("different-secret")
		assert.Nil(t, other.VerifyToken(token))
	})

	t.Run("expired tokens are rejected", func(t *testing.T) {
		claims := TokenClaims{
			UserID: "user-1",
			Email:  "a@x.com",
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * TokenTTL)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-TokenTTL)),
			},
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString([]byte("test-signing-secret"))
		require.NoError(t, err)

		assert.Nil(t, tokens.VerifyToken(expired))
	})

	t.Run("unsigned algorithm is rejected", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, TokenClaims{UserID: "user-1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		assert.Nil(t, tokens.VerifyToken(unsigned))
	})
}
