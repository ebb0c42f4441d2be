// Package sweep runs the periodic housekeeping loop: expired sessions, dead
// reset tokens, and stale rate limit attempts.
package sweep

import (
	"context"
	"log"
	"time"

	"visitgate/internal/observability"
)

// SessionSweeper deletes expired sessions. Satisfied by the session manager.
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// TokenSweeper deletes expired or used reset tokens. Satisfied by the reset
// service.
type TokenSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// AttemptPruner deletes rate limit attempts older than the window. Satisfied
// by the rate limiter.
type AttemptPruner interface {
	Prune(ctx context.Context) (int, error)
}

// Sweeper drives the three sweeps on a fixed interval.
type Sweeper struct {
	sessions SessionSweeper
	tokens   TokenSweeper
	attempts AttemptPruner
	metrics  *observability.Metrics
	interval time.Duration
}

func NewSweeper(sessions SessionSweeper, tokens TokenSweeper, attempts AttemptPruner, metrics *observability.Metrics, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		sessions: sessions,
		tokens:   tokens,
		attempts: attempts,
		metrics:  metrics,
		interval: interval,
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// Each sweep only removes rows that are already unusable, so running
// concurrently with live traffic is safe.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	sessions := 0
	tokens := 0
	attempts := 0
	var err error

	if s.sessions != nil {
		if sessions, err = s.sessions.SweepExpired(ctx); err != nil {
			log.Printf("sweep: sessions: %v", err)
		}
	}
	if s.tokens != nil {
		if tokens, err = s.tokens.SweepExpired(ctx); err != nil {
			log.Printf("sweep: reset tokens: %v", err)
		}
	}
	if s.attempts != nil {
		if attempts, err = s.attempts.Prune(ctx); err != nil {
			log.Printf("sweep: rate limit attempts: %v", err)
		}
	}

	if sessions > 0 || tokens > 0 || attempts > 0 {
		log.Printf("sweep: removed %d session(s), %d reset token(s), %d attempt(s)", sessions, tokens, attempts)
	}
	s.metrics.RecordSweep(ctx, sessions, tokens, attempts)
}
