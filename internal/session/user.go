// ABOUTME: User is the opaque operator record kept next to the token
// ABOUTME: Records are derived from token claims and parsed tolerantly from storage

package session

import (
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// User is an opaque JSON object describing the operator.
type User map[string]any

// Clone returns a shallow copy, nil for an empty record.
func (u User) Clone() User {
	if len(u) == 0 {
		return nil
	}
	c := make(User, len(u))
	for k, v := range u {
		c[k] = v
	}
	return c
}

// DisplayName picks the most readable identifier the record carries.
func (u User) DisplayName() string {
	for _, key := range []string{"name", "email", "username", "sub", "id", "_id"} {
		if v, ok := u[key]; ok {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// Email returns the email claim when present.
func (u User) Email() string {
	if s, ok := u["email"].(string); ok {
		return s
	}
	return ""
}

// parseUser decodes a stored user. Anything that is not a JSON object
// yields nil.
func parseUser(raw string) User {
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	if len(u) == 0 {
		return nil
	}
	return u
}

// UserFromToken builds a user record from the claims of a JWT without
// verifying its signature; the backend verifies tokens, this service only
// displays them. Registered timing claims are dropped. A token that is not a
// JWT yields nil.
func UserFromToken(token string) User {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	u := make(User, len(claims))
	for k, v := range claims {
		switch k {
		case "exp", "iat", "nbf":
			continue
		}
		u[k] = v
	}
	if len(u) == 0 {
		return nil
	}
	return u
}
