// Package repository defines the persistence interface for rate limit attempts.
package repository

import (
	"context"
	"time"
)

// Repository tracks attempts per (client address, action) pair. Each attempt is
// a single row; counting, resetting, and pruning work over those rows.
type Repository interface {
	// CountSince returns the number of attempts recorded for the pair at or
	// after the cutoff.
	CountSince(ctx context.Context, clientAddress, action string, since time.Time) (int, error)
	// Record appends one attempt for the pair at the given time.
	Record(ctx context.Context, clientAddress, action string, at time.Time) error
	// Reset deletes every attempt for the pair and returns the count deleted.
	Reset(ctx context.Context, clientAddress, action string) (int, error)
	// DeleteBefore deletes all attempts older than the cutoff, across all
	// pairs, and returns the count deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
