package repository

import (
	"context"
	"database/sql"
	"time"
)

// PostgresRepository is the Postgres-backed attempt store.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CountSince(ctx context.Context, clientAddress, action string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rate_limits WHERE client_address = $1 AND action = $2 AND attempted_at >= $3`,
		clientAddress, action, since,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) Record(ctx context.Context, clientAddress, action string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rate_limits (client_address, action, attempted_at) VALUES ($1, $2, $3)`,
		clientAddress, action, at,
	)
	return err
}

func (r *PostgresRepository) Reset(ctx context.Context, clientAddress, action string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM rate_limits WHERE client_address = $1 AND action = $2`,
		clientAddress, action,
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

func (r *PostgresRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM rate_limits WHERE attempted_at < $1`,
		cutoff,
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
