package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"visitgate/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `token_hash, identity_id, tenant_id, client_address, client_agent, last_activity, expires_at, created_at`

// GetByTokenHash returns the session for the token hash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`, tokenHash)
	var (
		s        domain.Session
		tenantID sql.NullString
	)
	err := row.Scan(&s.TokenHash, &s.IdentityID, &tenantID, &s.ClientAddress, &s.ClientAgent,
		&s.LastActivity, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if tenantID.Valid {
		s.TenantID = tenantID.String
	}
	return &s, nil
}

// Create persists the session to the database. The session must have TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	tenantID := sql.NullString{String: s.TenantID, Valid: s.TenantID != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, identity_id, tenant_id, client_address, client_agent, last_activity, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.TokenHash, s.IdentityID, tenantID, s.ClientAddress, s.ClientAgent,
		s.LastActivity, s.ExpiresAt, s.CreatedAt)
	return err
}

// CountActiveByIdentity returns the number of unexpired sessions for the identity.
func (r *PostgresRepository) CountActiveByIdentity(ctx context.Context, identityID string, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sessions WHERE identity_id = $1 AND expires_at > $2`,
		identityID, now).Scan(&count)
	return count, err
}

// EvictOldestByIdentity deletes the identity's unexpired sessions oldest-first
// by last activity until at most keep remain. Returns the number deleted.
func (r *PostgresRepository) EvictOldestByIdentity(ctx context.Context, identityID string, keep int, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token_hash IN (
		     SELECT token_hash FROM sessions
		     WHERE identity_id = $1 AND expires_at > $2
		     ORDER BY last_activity DESC
		     OFFSET $3
		 )`,
		identityID, now, keep)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// UpdateLastActivity sets the session's last-activity timestamp. Returns an error if the update fails.
func (r *PostgresRepository) UpdateLastActivity(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity = $2 WHERE token_hash = $1`, tokenHash, at)
	return err
}

// UpdateExpiry sets the session's expiry timestamp. A missing row is a no-op.
func (r *PostgresRepository) UpdateExpiry(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = $2 WHERE token_hash = $1`, tokenHash, expiresAt)
	return err
}

// Delete removes the session with the given token hash; no error when absent.
func (r *PostgresRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteAllByIdentity removes every session for the identity. Returns the number deleted.
func (r *PostgresRepository) DeleteAllByIdentity(ctx context.Context, identityID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE identity_id = $1`, identityID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteExpired removes sessions whose expiry is in the past. Returns the number deleted.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
