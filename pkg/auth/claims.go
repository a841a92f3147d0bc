package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the principal the identity provider vouches for.
type AccessTokenPayload struct {
	Email       string
	DisplayName string
	SessionID   string
}

// AccessTokenClaims represents the typed JWT presented by clients. The
// registered ID (jti) doubles as the session identifier.
type AccessTokenClaims struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

// SessionID returns the jti claim.
func (c *AccessTokenClaims) SessionID() string {
	if c == nil {
		return ""
	}
	return c.ID
}
