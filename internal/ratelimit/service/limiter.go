// Package service implements the fixed-window rate limiter backing login and
// password-reset throttling.
package service

import (
	"context"
	"fmt"
	"time"

	"visitgate/internal/ratelimit/repository"
)

// Limiter counts attempts per (client address, action) pair over a trailing
// window and rejects the pair once the count reaches the threshold.
//
// Check and record are separate store round-trips, so two concurrent requests
// can both pass Allow at count max-1. The window tolerates that: the limiter
// bounds abuse, it does not serialize it.
type Limiter struct {
	repo        repository.Repository
	window      time.Duration
	maxAttempts int
}

// NewLimiter returns a Limiter over the given attempt store. window is the
// trailing interval attempts are counted over; maxAttempts is the threshold at
// which further attempts are rejected.
func NewLimiter(repo repository.Repository, window time.Duration, maxAttempts int) *Limiter {
	if window <= 0 {
		window = time.Hour
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Limiter{repo: repo, window: window, maxAttempts: maxAttempts}
}

// Allow reports whether the pair is under the threshold for the trailing
// window. It does not record anything; callers record failures explicitly via
// RecordAttempt.
func (l *Limiter) Allow(ctx context.Context, clientAddress, action string) (bool, error) {
	since := time.Now().UTC().Add(-l.window)
	count, err := l.repo.CountSince(ctx, clientAddress, action, since)
	if err != nil {
		return false, fmt.Errorf("ratelimit: count: %w", err)
	}
	return count < l.maxAttempts, nil
}

// RecordAttempt appends one failed attempt for the pair.
func (l *Limiter) RecordAttempt(ctx context.Context, clientAddress, action string) error {
	if err := l.repo.Record(ctx, clientAddress, action, time.Now().UTC()); err != nil {
		return fmt.Errorf("ratelimit: record: %w", err)
	}
	return nil
}

// Reset clears all recorded attempts for the pair. Called after a successful
// attempt so past failures stop counting against the client.
func (l *Limiter) Reset(ctx context.Context, clientAddress, action string) error {
	if _, err := l.repo.Reset(ctx, clientAddress, action); err != nil {
		return fmt.Errorf("ratelimit: reset: %w", err)
	}
	return nil
}

// Prune deletes attempts older than the window across all pairs and returns
// the count deleted. Housekeeping only; Allow already ignores old attempts.
func (l *Limiter) Prune(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-l.window)
	n, err := l.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ratelimit: prune: %w", err)
	}
	return n, nil
}
