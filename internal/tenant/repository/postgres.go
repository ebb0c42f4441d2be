package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"visitgate/internal/tenant/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the tenant for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// First returns the oldest tenant in the directory, or nil when the directory
// is empty. Used as the default for super-admins with no stored preference.
func (r *PostgresRepository) First(ctx context.Context) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tenants ORDER BY created_at, id LIMIT 1`)
	return scanTenant(row)
}

// List returns all tenants ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM tenants ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// Create persists the tenant to the database. The tenant must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, created_at) VALUES ($1, $2, $3)`,
		t.ID, t.Name, t.CreatedAt)
	return err
}

// GetPreference returns the selected tenant id stored for the identity, or ""
// when no preference is stored. Only meaningful for switchable roles.
func (r *PostgresRepository) GetPreference(ctx context.Context, identityID string) (string, error) {
	var tenantID string
	err := r.db.QueryRowContext(ctx,
		`SELECT tenant_id FROM tenant_preferences WHERE identity_id = $1`, identityID).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return tenantID, nil
}

// SetPreference stores the selected tenant id for the identity, replacing any
// prior preference.
func (r *PostgresRepository) SetPreference(ctx context.Context, identityID, tenantID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenant_preferences (identity_id, tenant_id, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (identity_id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id, updated_at = EXCLUDED.updated_at`,
		identityID, tenantID, time.Now().UTC())
	return err
}

func scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
