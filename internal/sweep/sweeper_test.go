package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	calls atomic.Int64
	err   error
}

func (c *countingSweeper) SweepExpired(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

type countingPruner struct {
	calls atomic.Int64
}

func (c *countingPruner) Prune(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestSweeper_RunsAllSweepsAndStopsOnCancel(t *testing.T) {
	sessions := &countingSweeper{}
	tokens := &countingSweeper{}
	attempts := &countingPruner{}
	s := NewSweeper(sessions, tokens, attempts, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	// immediate sweep plus at least one tick
	if got := sessions.calls.Load(); got < 2 {
		t.Errorf("session sweeps = %d, want >= 2", got)
	}
	if got := tokens.calls.Load(); got < 2 {
		t.Errorf("token sweeps = %d, want >= 2", got)
	}
	if got := attempts.calls.Load(); got < 2 {
		t.Errorf("prunes = %d, want >= 2", got)
	}
}

func TestSweeper_ContinuesPastErrors(t *testing.T) {
	sessions := &countingSweeper{err: errors.New("db down")}
	tokens := &countingSweeper{}
	attempts := &countingPruner{}
	s := NewSweeper(sessions, tokens, attempts, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx) // single immediate sweep, then exit on the cancelled context

	if tokens.calls.Load() != 1 || attempts.calls.Load() != 1 {
		t.Error("a failing sweep must not block the others")
	}
}
