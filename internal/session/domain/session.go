package domain

import "time"

// ClientAgentMaxLen bounds the stored client-agent fingerprint.
const ClientAgentMaxLen = 255

// Session is a server-side login session. Only the SHA-256 hash of the bearer
// token is stored; the raw token exists solely in the client's cookie.
type Session struct {
	TokenHash     string
	IdentityID    string
	TenantID      string // tenant snapshot at issuance; "" for super-admins before a switch
	ClientAddress string
	ClientAgent   string
	LastActivity  time.Time
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
