package domain

import "time"

// DefaultSessionTTL is how long a session stays valid after login.
const DefaultSessionTTL = 30 * time.Minute

// Session binds an opaque token to an account for a limited time.
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
// A session is still valid at exactly ExpiresAt.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AuthTokenResponse is returned by a successful login.
type AuthTokenResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}
