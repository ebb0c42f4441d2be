// Package service orchestrates authentication: login, logout, and password
// change. It composes the credential primitives, rate limiter, session
// manager, and tenant resolver into the login contract the HTTP layer exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"visitgate/internal/audit"
	identitydomain "visitgate/internal/identity/domain"
	identityrepo "visitgate/internal/identity/repository"
	ratelimit "visitgate/internal/ratelimit/service"
	"visitgate/internal/security"
	sessionsvc "visitgate/internal/session/service"
	"visitgate/internal/tenantctx"
)

// ActionLogin is the rate limiter action for login attempts.
const ActionLogin = "login"

var (
	// ErrMissingFields is returned when email, password, or role is empty.
	ErrMissingFields = errors.New("missing fields")
	// ErrInvalidRole is returned when the requested role is not a known role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrRateLimited is returned when the client address has exhausted its
	// login attempts for the window.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrInvalidCredentials covers every credential failure uniformly:
	// unknown email, inactive identity, role mismatch, wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionCreateFailed is returned when credentials verified but the
	// session could not be stored.
	ErrSessionCreateFailed = errors.New("session create failed")
	// ErrPasswordMismatch is returned by ChangePassword when the current
	// password does not verify.
	ErrPasswordMismatch = errors.New("current password does not match")
)

// IdentitySummary is the caller-facing identity snapshot returned on login and
// by the current-identity endpoint. It never carries the credential hash.
type IdentitySummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id"`
}

// LoginResult is a successful login: the raw session token for cookie
// issuance, its expiry, and the identity summary.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  IdentitySummary
}

// Service wires the authentication flow together.
type Service struct {
	identities identityrepo.Repository
	hasher     *security.Hasher
	limiter    *ratelimit.Limiter
	sessions   *sessionsvc.Manager
	resolver   *tenantctx.Resolver
	auditor    audit.AuditLogger
}

func NewService(identities identityrepo.Repository, hasher *security.Hasher, limiter *ratelimit.Limiter, sessions *sessionsvc.Manager, resolver *tenantctx.Resolver, auditor audit.AuditLogger) *Service {
	return &Service{
		identities: identities,
		hasher:     hasher,
		limiter:    limiter,
		sessions:   sessions,
		resolver:   resolver,
		auditor:    auditor,
	}
}

// Login verifies the credentials and issues a session. Failures are typed:
// ErrMissingFields, ErrInvalidRole, ErrRateLimited, ErrInvalidCredentials,
// ErrSessionCreateFailed. Every credential failure looks the same to the
// caller regardless of which check tripped.
func (s *Service) Login(ctx context.Context, email, password, role, clientAddress, clientAgent string) (*LoginResult, error) {
	if email == "" || password == "" || role == "" {
		return nil, ErrMissingFields
	}
	parsedRole, err := identitydomain.ParseRole(role)
	if err != nil {
		return nil, ErrInvalidRole
	}

	allowed, err := s.limiter.Allow(ctx, clientAddress, ActionLogin)
	if err != nil {
		return nil, fmt.Errorf("auth: rate limit check: %w", err)
	}
	if !allowed {
		s.audit(ctx, "", "", audit.ActionLoginFailure, `{"reason":"rate_limited"}`)
		return nil, ErrRateLimited
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("auth: lookup identity: %w", err)
	}
	if identity == nil || !identity.Active || identity.Role != parsedRole ||
		!s.hasher.Verify(password, identity.PasswordHash) {
		s.recordFailure(ctx, clientAddress, identity)
		return nil, ErrInvalidCredentials
	}

	tenantID, err := s.resolver.ResolveTenant(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("auth: resolve tenant: %w", err)
	}

	raw, expiresAt, err := s.sessions.Create(ctx, identity.ID, tenantID, clientAddress, clientAgent)
	if err != nil {
		log.Printf("auth: session create for identity %s: %v", identity.ID, err)
		return nil, ErrSessionCreateFailed
	}

	if err := s.limiter.Reset(ctx, clientAddress, ActionLogin); err != nil {
		log.Printf("auth: reset rate limit for %s: %v", clientAddress, err)
	}
	s.audit(ctx, tenantID, identity.ID, audit.ActionLoginSuccess, "")

	return &LoginResult{
		Token:     raw,
		ExpiresAt: expiresAt,
		Identity: IdentitySummary{
			ID:       identity.ID,
			Email:    identity.Email,
			Role:     string(identity.Role),
			TenantID: tenantID,
		},
	}, nil
}

// Logout destroys the session for the raw token. Idempotent.
func (s *Service) Logout(ctx context.Context, rawToken, tenantID, identityID string) error {
	if err := s.sessions.Destroy(ctx, rawToken); err != nil {
		return fmt.Errorf("auth: logout: %w", err)
	}
	s.audit(ctx, tenantID, identityID, audit.ActionLogout, "")
	return nil
}

// ChangePassword rotates the identity's credential: the current password must
// verify, the new one must pass the strength rules, and every session for the
// identity is destroyed afterwards so all devices re-authenticate.
func (s *Service) ChangePassword(ctx context.Context, identity *identitydomain.Identity, currentPassword, newPassword string) error {
	if identity == nil {
		return ErrInvalidCredentials
	}
	if !s.hasher.Verify(currentPassword, identity.PasswordHash) {
		return ErrPasswordMismatch
	}
	if violations := security.ValidateStrength(newPassword); len(violations) > 0 {
		return &security.WeakPasswordError{Violations: violations}
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.identities.UpdatePasswordHash(ctx, identity.ID, hash); err != nil {
		return fmt.Errorf("auth: update credential: %w", err)
	}
	if _, err := s.sessions.DestroyAllForIdentity(ctx, identity.ID); err != nil {
		log.Printf("auth: revoke sessions for identity %s: %v", identity.ID, err)
	}
	s.audit(ctx, identity.FixedTenantID(), identity.ID, audit.ActionPasswordChanged, "")
	return nil
}

// recordFailure appends a rate limit attempt and audits the failed login.
// Best effort on both counts; the caller already returns ErrInvalidCredentials.
func (s *Service) recordFailure(ctx context.Context, clientAddress string, identity *identitydomain.Identity) {
	if err := s.limiter.RecordAttempt(ctx, clientAddress, ActionLogin); err != nil {
		log.Printf("auth: record failed attempt for %s: %v", clientAddress, err)
	}
	identityID := ""
	tenantID := ""
	if identity != nil {
		identityID = identity.ID
		tenantID = identity.FixedTenantID()
	}
	s.audit(ctx, tenantID, identityID, audit.ActionLoginFailure, "")
}

func (s *Service) audit(ctx context.Context, tenantID, identityID, action, metadata string) {
	if s.auditor != nil {
		s.auditor.LogEvent(ctx, tenantID, identityID, action, "auth", metadata)
	}
}
