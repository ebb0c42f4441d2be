package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"visitgate/internal/reset/domain"
)

// PostgresRepository is the Postgres-backed reset token store.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.ResetToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT token_hash, identity_id, expires_at, used_at, created_at
		 FROM password_resets WHERE token_hash = $1`,
		tokenHash,
	)
	var t domain.ResetToken
	var usedAt sql.NullTime
	err := row.Scan(&t.TokenHash, &t.IdentityID, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}
	return &t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, t *domain.ResetToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_resets (token_hash, identity_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		t.TokenHash, t.IdentityID, t.ExpiresAt, t.CreatedAt,
	)
	return err
}

func (r *PostgresRepository) DeleteByIdentity(ctx context.Context, identityID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE identity_id = $1`,
		identityID,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE password_resets SET used_at = $2 WHERE token_hash = $1 AND used_at IS NULL`,
		tokenHash, at,
	)
	return err
}

func (r *PostgresRepository) DeleteUnusable(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at <= $1 OR used_at IS NOT NULL`,
		now,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
