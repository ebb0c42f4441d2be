package repository

import (
	"context"
	"database/sql"
	"errors"

	"visitgate/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the audit log for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, identity_id, action, resource, ip, metadata, created_at
		 FROM audit_logs WHERE id = $1`, id)
	var (
		a          domain.AuditLog
		identityID sql.NullString
		metadata   sql.NullString
	)
	err := row.Scan(&a.ID, &a.TenantID, &identityID, &a.Action, &a.Resource, &a.IP, &metadata, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.IdentityID = identityID.String
	a.Metadata = metadata.String
	return &a, nil
}

// ListByTenant returns audit logs for the given tenant, newest first, paginated
// by limit and offset. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, identity_id, action, resource, ip, metadata, created_at
		 FROM audit_logs WHERE tenant_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a          domain.AuditLog
			identityID sql.NullString
			metadata   sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.TenantID, &identityID, &a.Action, &a.Resource, &a.IP, &metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.IdentityID = identityID.String
		a.Metadata = metadata.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Create persists the audit log to the database. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	identityID := sql.NullString{String: a.IdentityID, Valid: a.IdentityID != ""}
	metadata := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, tenant_id, identity_id, action, resource, ip, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TenantID, identityID, a.Action, a.Resource, a.IP, metadata, a.CreatedAt)
	return err
}
