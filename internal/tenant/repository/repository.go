package repository

import (
	"context"

	"visitgate/internal/tenant/domain"
)

// Repository defines persistence for the tenant directory and for the
// per-identity selected-tenant preference used by switchable roles.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	First(ctx context.Context) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
	Create(ctx context.Context, t *domain.Tenant) error

	GetPreference(ctx context.Context, identityID string) (string, error)
	SetPreference(ctx context.Context, identityID, tenantID string) error
}
