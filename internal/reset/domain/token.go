// Package domain holds the password reset token model.
package domain

import "time"

// ResetToken is a stored password reset token. Only the SHA-256 hash of the
// raw token is persisted; the raw value exists solely in the reset link sent
// to the user.
type ResetToken struct {
	TokenHash  string
	IdentityID string
	ExpiresAt  time.Time
	UsedAt     *time.Time
	CreatedAt  time.Time
}

// Usable reports whether the token can still redeem a reset: not yet used and
// not expired at the given instant.
func (t *ResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
