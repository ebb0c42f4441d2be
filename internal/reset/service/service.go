// Package service implements the password reset token lifecycle: issuing
// single-use tokens, redeeming them, and sweeping dead rows.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"visitgate/internal/audit"
	identityrepo "visitgate/internal/identity/repository"
	"visitgate/internal/reset/domain"
	"visitgate/internal/reset/repository"
	"visitgate/internal/security"
)

// ErrInvalidToken covers every way a reset token can fail: unknown, expired,
// already used, or superseded by a newer token. Callers never learn which.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionRevoker destroys all live sessions for an identity after a credential
// change. Satisfied by the session manager.
type SessionRevoker interface {
	DestroyAllForIdentity(ctx context.Context, identityID string) (int, error)
}

// Service issues and redeems password reset tokens.
type Service struct {
	tokens     repository.Repository
	identities identityrepo.Repository
	hasher     *security.Hasher
	sessions   SessionRevoker
	auditor    audit.AuditLogger
	ttl        time.Duration
}

func NewService(tokens repository.Repository, identities identityrepo.Repository, hasher *security.Hasher, sessions SessionRevoker, auditor audit.AuditLogger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		tokens:     tokens,
		identities: identities,
		hasher:     hasher,
		sessions:   sessions,
		auditor:    auditor,
		ttl:        ttl,
	}
}

// CreateToken issues a fresh reset token for the identity and returns the raw
// hex value for the one-time link. Any prior token for the identity is deleted
// first, so at most one token is live per identity and an unredeemed older
// token stops validating the moment a new one is issued.
func (s *Service) CreateToken(ctx context.Context, identityID string) (string, error) {
	if _, err := s.tokens.DeleteByIdentity(ctx, identityID); err != nil {
		return "", fmt.Errorf("reset: supersede prior tokens: %w", err)
	}
	raw, err := security.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("reset: generate token: %w", err)
	}
	now := time.Now().UTC()
	t := &domain.ResetToken{
		TokenHash:  security.HashToken(raw),
		IdentityID: identityID,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}
	if err := s.tokens.Create(ctx, t); err != nil {
		return "", fmt.Errorf("reset: store token: %w", err)
	}
	if s.auditor != nil {
		s.auditor.LogEvent(ctx, "", identityID, audit.ActionResetRequested, "password_reset", "")
	}
	return raw, nil
}

// ValidateToken resolves the raw token to the owning identity without
// consuming it. Returns ErrInvalidToken for anything that is not a live,
// unused token.
func (s *Service) ValidateToken(ctx context.Context, rawToken string) (string, error) {
	t, err := s.lookupUsable(ctx, rawToken)
	if err != nil {
		return "", err
	}
	return t.IdentityID, nil
}

// ConsumeAndReset redeems the token: re-validates it, checks the new password
// against the strength rules, updates the identity's credential, marks the
// token used, and destroys every session for the identity. A second call with
// the same token fails with ErrInvalidToken.
func (s *Service) ConsumeAndReset(ctx context.Context, rawToken, newPassword string) error {
	t, err := s.lookupUsable(ctx, rawToken)
	if err != nil {
		return err
	}
	if violations := security.ValidateStrength(newPassword); len(violations) > 0 {
		return &security.WeakPasswordError{Violations: violations}
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("reset: hash password: %w", err)
	}
	if err := s.identities.UpdatePasswordHash(ctx, t.IdentityID, hash); err != nil {
		return fmt.Errorf("reset: update credential: %w", err)
	}
	if err := s.tokens.MarkUsed(ctx, t.TokenHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("reset: mark used: %w", err)
	}
	if s.sessions != nil {
		if _, err := s.sessions.DestroyAllForIdentity(ctx, t.IdentityID); err != nil {
			log.Printf("reset: revoke sessions for identity %s: %v", t.IdentityID, err)
		}
	}
	if s.auditor != nil {
		s.auditor.LogEvent(ctx, "", t.IdentityID, audit.ActionResetCompleted, "password_reset", "")
	}
	return nil
}

// SweepExpired deletes tokens that are expired or already used and returns the
// count. Housekeeping only; validation already rejects those rows.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.tokens.DeleteUnusable(ctx, time.Now().UTC())
}

func (s *Service) lookupUsable(ctx context.Context, rawToken string) (*domain.ResetToken, error) {
	if rawToken == "" {
		return nil, ErrInvalidToken
	}
	t, err := s.tokens.GetByTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		return nil, fmt.Errorf("reset: lookup: %w", err)
	}
	if t == nil || !t.Usable(time.Now().UTC()) {
		return nil, ErrInvalidToken
	}
	return t, nil
}
