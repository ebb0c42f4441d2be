// Package service implements the session manager: issuing, validating,
// extending, and revoking hashed session tokens.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"visitgate/internal/audit"
	"visitgate/internal/security"
	"visitgate/internal/session/domain"
	"visitgate/internal/session/repository"
)

// ErrNotAuthenticated is returned whenever a token does not resolve to a live
// session: unknown token, malformed token, or expired session. Lookups fail
// closed; the caller never learns which case applied.
var ErrNotAuthenticated = errors.New("not authenticated")

// Manager issues and validates sessions against the shared session store.
type Manager struct {
	repo           repository.Repository
	auditor        audit.AuditLogger
	ttl            time.Duration
	maxPerIdentity int
	strictIP       bool
}

// NewManager returns a session Manager. ttl is the session lifetime,
// maxPerIdentity caps live sessions per identity, and strictIP selects the
// IP-drift policy: false logs and audits a mismatch, true destroys the session
// and rejects the request.
func NewManager(repo repository.Repository, auditor audit.AuditLogger, ttl time.Duration, maxPerIdentity int, strictIP bool) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxPerIdentity <= 0 {
		maxPerIdentity = 5
	}
	return &Manager{
		repo:           repo,
		auditor:        auditor,
		ttl:            ttl,
		maxPerIdentity: maxPerIdentity,
		strictIP:       strictIP,
	}
}

// TTL returns the configured session lifetime; the HTTP layer mirrors it on the
// session cookie.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create enforces the per-identity session cap, then issues a new session and
// returns the raw token for cookie issuance together with its expiry. The raw
// token is never stored; only its SHA-256 hash is.
//
// Cap enforcement is a read-then-delete-then-insert sequence without a
// transaction: concurrent logins for one identity can transiently exceed the
// cap and converge on the next create.
func (m *Manager) Create(ctx context.Context, identityID, tenantID, clientAddress, clientAgent string) (string, time.Time, error) {
	now := time.Now().UTC()

	count, err := m.repo.CountActiveByIdentity(ctx, identityID, now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: count active: %w", err)
	}
	if count >= m.maxPerIdentity {
		evicted, err := m.repo.EvictOldestByIdentity(ctx, identityID, m.maxPerIdentity-1, now)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("session: evict oldest: %w", err)
		}
		if evicted > 0 {
			log.Printf("session: evicted %d session(s) for identity %s at cap", evicted, identityID)
		}
	}

	raw, err := security.GenerateToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: generate token: %w", err)
	}
	if len(clientAgent) > domain.ClientAgentMaxLen {
		clientAgent = clientAgent[:domain.ClientAgentMaxLen]
	}
	expiresAt := now.Add(m.ttl)
	s := &domain.Session{
		TokenHash:     security.HashToken(raw),
		IdentityID:    identityID,
		TenantID:      tenantID,
		ClientAddress: clientAddress,
		ClientAgent:   clientAgent,
		LastActivity:  now,
		ExpiresAt:     expiresAt,
		CreatedAt:     now,
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return "", time.Time{}, fmt.Errorf("session: create: %w", err)
	}
	return raw, expiresAt, nil
}

// Validate resolves the raw token to a live session and refreshes its
// last-activity timestamp (best effort). When the requesting client's address
// differs from the one recorded at issuance, a possible-hijack audit event is
// emitted; under the strict IP policy the session is additionally destroyed and
// the request rejected.
func (m *Manager) Validate(ctx context.Context, rawToken, clientAddress string) (*domain.Session, error) {
	if rawToken == "" {
		return nil, ErrNotAuthenticated
	}
	tokenHash := security.HashToken(rawToken)
	s, err := m.repo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("session: lookup: %w", err)
	}
	now := time.Now().UTC()
	if s == nil || s.Expired(now) {
		return nil, ErrNotAuthenticated
	}

	if clientAddress != "" && s.ClientAddress != "" && clientAddress != s.ClientAddress {
		meta := fmt.Sprintf(`{"stored_address":%q,"seen_address":%q}`, s.ClientAddress, clientAddress)
		if m.auditor != nil {
			m.auditor.LogEvent(ctx, s.TenantID, s.IdentityID, audit.ActionSessionIPMismatch, "session", meta)
		}
		log.Printf("session: address mismatch for identity %s (possible hijack)", s.IdentityID)
		if m.strictIP {
			if err := m.repo.Delete(ctx, tokenHash); err != nil {
				log.Printf("session: destroy on address mismatch: %v", err)
			}
			return nil, ErrNotAuthenticated
		}
	}

	if err := m.repo.UpdateLastActivity(ctx, tokenHash, now); err != nil {
		log.Printf("session: refresh last activity: %v", err)
	}
	s.LastActivity = now
	return s, nil
}

// Destroy deletes the session for the raw token. Idempotent: destroying an
// unknown or already-destroyed token is not an error.
func (m *Manager) Destroy(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	return m.repo.Delete(ctx, security.HashToken(rawToken))
}

// DestroyAllForIdentity deletes every session for the identity and returns the
// count. Used after password changes/resets and for "log out everywhere".
func (m *Manager) DestroyAllForIdentity(ctx context.Context, identityID string) (int, error) {
	n, err := m.repo.DeleteAllByIdentity(ctx, identityID)
	if err != nil {
		return 0, fmt.Errorf("session: destroy all: %w", err)
	}
	if n > 0 && m.auditor != nil {
		m.auditor.LogEvent(ctx, "", identityID, audit.ActionSessionsRevoked, "session", fmt.Sprintf(`{"count":%d}`, n))
	}
	return n, nil
}

// Extend pushes the session's expiry to now+ttl and returns the new expiry so
// the caller can re-issue the cookie. A token that does not resolve is a no-op
// and returns the zero time with no error.
func (m *Manager) Extend(ctx context.Context, rawToken string, ttl time.Duration) (time.Time, error) {
	if rawToken == "" {
		return time.Time{}, nil
	}
	if ttl <= 0 {
		ttl = m.ttl
	}
	tokenHash := security.HashToken(rawToken)
	s, err := m.repo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		return time.Time{}, fmt.Errorf("session: lookup: %w", err)
	}
	if s == nil {
		return time.Time{}, nil
	}
	expiresAt := time.Now().UTC().Add(ttl)
	if err := m.repo.UpdateExpiry(ctx, tokenHash, expiresAt); err != nil {
		return time.Time{}, fmt.Errorf("session: extend: %w", err)
	}
	return expiresAt, nil
}

// SweepExpired deletes sessions whose expiry has passed and returns the count.
// Safe to run concurrently with live traffic; it only removes rows that are
// already unusable.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	return m.repo.DeleteExpired(ctx, time.Now().UTC())
}
