// Package tenantctx resolves which tenant's data an authenticated identity may
// see, and enforces the isolation rules between tenants.
package tenantctx

import (
	"context"
	"errors"
	"fmt"

	"visitgate/internal/audit"
	identitydomain "visitgate/internal/identity/domain"
	tenantrepo "visitgate/internal/tenant/repository"
)

var (
	// ErrForbidden is returned when a non-super-admin identity attempts to
	// switch tenants.
	ErrForbidden = errors.New("forbidden")
	// ErrTenantNotFound is returned when the requested tenant does not exist
	// in the directory, or when no tenant can be resolved at all.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrIsolationViolation is returned when an identity touches a tenant
	// other than its own.
	ErrIsolationViolation = errors.New("isolation violation")
)

// Resolver maps identities to their active tenant. Super-admins float across
// tenants via a stored preference; every other role is pinned to the tenant on
// its identity row.
type Resolver struct {
	tenants tenantrepo.Repository
	auditor audit.AuditLogger
}

func NewResolver(tenants tenantrepo.Repository, auditor audit.AuditLogger) *Resolver {
	return &Resolver{tenants: tenants, auditor: auditor}
}

// ResolveTenant returns the tenant the identity currently operates in. For a
// super-admin that is the stored preference, falling back to the oldest tenant
// in the directory; for every other role it is the identity's fixed tenant —
// the preference table is never consulted for them.
func (r *Resolver) ResolveTenant(ctx context.Context, identity *identitydomain.Identity) (string, error) {
	if identity == nil {
		return "", ErrForbidden
	}
	if identity.Role != identitydomain.RoleSuperAdmin {
		fixed := identity.FixedTenantID()
		if fixed == "" {
			return "", ErrTenantNotFound
		}
		return fixed, nil
	}

	pref, err := r.tenants.GetPreference(ctx, identity.ID)
	if err != nil {
		return "", fmt.Errorf("tenantctx: load preference: %w", err)
	}
	if pref != "" {
		return pref, nil
	}
	first, err := r.tenants.First(ctx)
	if err != nil {
		return "", fmt.Errorf("tenantctx: first tenant: %w", err)
	}
	if first == nil {
		return "", ErrTenantNotFound
	}
	return first.ID, nil
}

// SwitchTenant changes a super-admin's active tenant. Any other role gets
// ErrForbidden; a tenant missing from the directory gets ErrTenantNotFound.
// A successful switch persists the preference and emits one audit event.
func (r *Resolver) SwitchTenant(ctx context.Context, identity *identitydomain.Identity, requestedTenantID string) error {
	if identity == nil || identity.Role != identitydomain.RoleSuperAdmin {
		return ErrForbidden
	}
	t, err := r.tenants.GetByID(ctx, requestedTenantID)
	if err != nil {
		return fmt.Errorf("tenantctx: lookup tenant: %w", err)
	}
	if t == nil {
		return ErrTenantNotFound
	}
	if err := r.tenants.SetPreference(ctx, identity.ID, t.ID); err != nil {
		return fmt.Errorf("tenantctx: persist preference: %w", err)
	}
	if r.auditor != nil {
		r.auditor.LogEvent(ctx, t.ID, identity.ID, audit.ActionTenantSwitched, "tenant", "")
	}
	return nil
}

// EnforceIsolation checks that the identity may touch data belonging to
// resourceTenantID. Super-admins pass for any tenant. Every other role passes
// only for its own tenant; a mismatch returns ErrIsolationViolation and emits
// exactly one audit event recording the actor and the tenant it reached for.
func (r *Resolver) EnforceIsolation(ctx context.Context, identity *identitydomain.Identity, resourceTenantID string) error {
	if identity == nil {
		return ErrIsolationViolation
	}
	if identity.Role == identitydomain.RoleSuperAdmin {
		return nil
	}
	if identity.FixedTenantID() == resourceTenantID && resourceTenantID != "" {
		return nil
	}
	if r.auditor != nil {
		meta := fmt.Sprintf(`{"attempted_tenant":%q}`, resourceTenantID)
		r.auditor.LogEvent(ctx, identity.FixedTenantID(), identity.ID, audit.ActionIsolationDenied, "tenant", meta)
	}
	return ErrIsolationViolation
}
