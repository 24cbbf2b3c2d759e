package domain

import "time"

// Identity is the authenticated caller as asserted by a verified session token.
type Identity struct {
	UserID    string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasRole reports whether the identity's role is one of allowed.
func (i Identity) HasRole(allowed ...Role) bool {
	for _, r := range allowed {
		if i.Role == r {
			return true
		}
	}
	return false
}

// GoogleUserInfo holds the claims taken from a validated Google ID token.
type GoogleUserInfo struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}
