package repository

import (
	"context"

	"visitgate/internal/audit/domain"
)

// Repository defines persistence for audit logs. Append-only: there is no
// update or delete.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.AuditLog, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditLog, error)
	Create(ctx context.Context, a *domain.AuditLog) error
}
