// Package audit is the append-only security event sink. Every module that
// touches authentication, sessions, or tenant-scoped data writes its audit
// trail through this package.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"visitgate/internal/audit/domain"
	auditrepo "visitgate/internal/audit/repository"
)

// SentinelTenantID is the tenant_id used for events that have no tenant
// (e.g. login_failure before any identity resolved, sweeper housekeeping).
const SentinelTenantID = "_system"

// Common audit actions emitted by the auth core.
const (
	ActionLoginSuccess      = "login_success"
	ActionLoginFailure      = "login_failure"
	ActionLogout            = "logout"
	ActionPasswordChanged   = "password_changed"
	ActionResetRequested    = "reset_requested"
	ActionResetCompleted    = "reset_completed"
	ActionSessionIPMismatch = "session_ip_mismatch"
	ActionSessionsRevoked   = "sessions_revoked"
	ActionTenantSwitched    = "tenant_switched"
	ActionIsolationDenied   = "isolation_violation"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, tenantID, identityID, action, resource, metadata string)
}

// Emitter forwards audit events to an external stream (e.g. Kafka). May be nil.
type Emitter interface {
	Emit(ctx context.Context, e *domain.AuditLog) error
}

// Logger implements AuditLogger using the audit repository, an optional IP
// extractor, and an optional stream emitter.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     Emitter
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor
// for the client IP. ipExtractor may be nil; then IP is recorded as "unknown".
// emitter may be nil; then events are only persisted locally.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, emitter Emitter) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, emitter: emitter}
}

// LogEvent writes one audit log entry and, when an emitter is configured,
// forwards it asynchronously. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, tenantID, identityID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		IdentityID: identityID,
		Action:     action,
		Resource:   resource,
		IP:         ip,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
	EmitAsync(l.emitter, entry)
}
