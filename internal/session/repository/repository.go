package repository

import (
	"context"
	"time"

	"visitgate/internal/session/domain"
)

// Repository defines persistence for sessions. Sessions are keyed by token
// hash; raw tokens never reach this layer.
type Repository interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	CountActiveByIdentity(ctx context.Context, identityID string, now time.Time) (int, error)
	// EvictOldestByIdentity deletes the identity's active sessions ordered by
	// last activity (oldest first) until at most keep remain. Returns the
	// number of sessions deleted.
	EvictOldestByIdentity(ctx context.Context, identityID string, keep int, now time.Time) (int, error)
	UpdateLastActivity(ctx context.Context, tokenHash string, at time.Time) error
	UpdateExpiry(ctx context.Context, tokenHash string, expiresAt time.Time) error
	Delete(ctx context.Context, tokenHash string) error
	DeleteAllByIdentity(ctx context.Context, identityID string) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
