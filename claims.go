package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload carried by a session token: the subject email,
// an internal identity reference, and the registered expiry.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
}

// Email returns the subject the token was issued for.
func (c *SessionClaims) Email() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the absolute expiry embedded in the token.
func (c *SessionClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
