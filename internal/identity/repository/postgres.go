package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"visitgate/internal/identity/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const identityColumns = `id, email, role, tenant_id, password_hash, is_active, created_at, updated_at`

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// GetByEmail returns the identity for email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
	return scanIdentity(row)
}

// Create persists the identity to the database. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	tenantID := sql.NullString{}
	if i.TenantID != nil {
		tenantID = sql.NullString{String: *i.TenantID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, email, role, tenant_id, password_hash, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		i.ID, i.Email, string(i.Role), tenantID, i.PasswordHash, i.Active, i.CreatedAt, i.UpdatedAt)
	return err
}

// UpdatePasswordHash updates the password hash for the identity with the given id. Returns an error if the update fails.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, time.Now().UTC())
	return err
}

// SetActive enables or disables the identity with the given id. Returns an error if the update fails.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, time.Now().UTC())
	return err
}

// Delete removes the identity with the given id. Sessions, reset tokens, and
// tenant preferences cascade at the schema level.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id)
	return err
}

func scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var (
		i        domain.Identity
		role     string
		tenantID sql.NullString
	)
	err := row.Scan(&i.ID, &i.Email, &role, &tenantID, &i.PasswordHash, &i.Active, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Role = domain.Role(role)
	if tenantID.Valid {
		i.TenantID = &tenantID.String
	}
	return &i, nil
}
