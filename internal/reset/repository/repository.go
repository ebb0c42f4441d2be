// Package repository defines the persistence interface for password reset tokens.
package repository

import (
	"context"
	"time"

	"visitgate/internal/reset/domain"
)

// Repository is the reset token store. Get returns (nil, nil) when no row
// matches; errors indicate store failure only.
type Repository interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.ResetToken, error)
	Create(ctx context.Context, t *domain.ResetToken) error
	// DeleteByIdentity removes every token for the identity, used or not, and
	// returns the count. Called before issuing a new token so at most one
	// token is live per identity.
	DeleteByIdentity(ctx context.Context, identityID string) (int, error)
	// MarkUsed stamps the token's used marker. Marking an already-used or
	// missing token is not an error.
	MarkUsed(ctx context.Context, tokenHash string, at time.Time) error
	// DeleteUnusable removes tokens that are expired or already used and
	// returns the count.
	DeleteUnusable(ctx context.Context, now time.Time) (int, error)
}
