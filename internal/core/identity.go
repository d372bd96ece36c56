package core

import "time"

// Identity is an authenticated user as resolved by the identity gate.
type Identity struct {
	UserID    int64
	Username  string
	ExpiresAt time.Time // zero means no expiry
}

// Valid reports whether the identity may still act at the given instant.
func (i Identity) Valid(now time.Time) bool {
	if i.UserID == 0 || i.Username == "" {
		return false
	}
	return i.ExpiresAt.IsZero() || now.Before(i.ExpiresAt)
}
