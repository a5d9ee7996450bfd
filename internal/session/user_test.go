// ABOUTME: Tests for user records derived from tokens and stored JSON
// ABOUTME: Covers unverified claim decoding and display name selection

package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("backend-secret-we-do-not-know"))
	require.NoError(t, err)
	return signed
}

func TestUserFromToken(t *testing.T) {
	token := signTestToken(t, jwt.MapClaims{
		"id":    "64f0c0ffee",
		"email": "admin@stellara.test",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	})

	user := UserFromToken(token)
	require.NotNil(t, user)
	assert.Equal(t, "admin@stellara.test", user.Email())
	assert.Equal(t, "64f0c0ffee", user["id"])
	assert.NotContains(t, user, "exp")
	assert.NotContains(t, user, "iat")
}

func TestUserFromToken_ExpiredStillDecodes(t *testing.T) {
	// Expiry is the backend's business; the record is for display only
	token := signTestToken(t, jwt.MapClaims{
		"email": "old@stellara.test",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	})

	user := UserFromToken(token)
	require.NotNil(t, user)
	assert.Equal(t, "old@stellara.test", user.Email())
}

func TestUserFromToken_NotAJWT(t *testing.T) {
	assert.Nil(t, UserFromToken("opaque-token"))
	assert.Nil(t, UserFromToken(""))
}

func TestUserFromToken_OnlyTimingClaims(t *testing.T) {
	token := signTestToken(t, jwt.MapClaims{"iat": time.Now().Unix()})
	assert.Nil(t, UserFromToken(token))
}

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{name: "name wins", user: User{"name": "Ada", "email": "ada@example.com"}, want: "Ada"},
		{name: "email fallback", user: User{"email": "ada@example.com", "id": "1"}, want: "ada@example.com"},
		{name: "id fallback", user: User{"_id": "abc"}, want: "abc"},
		{name: "empty", user: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.DisplayName())
		})
	}
}
