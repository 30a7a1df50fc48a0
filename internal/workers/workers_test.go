package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakePurger) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 3, f.err
}

func (f *fakePurger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestSweep_UsesRetentionWindow(t *testing.T) {
	p := &fakePurger{}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewRetentionSweeper(p, 48*time.Hour, time.Minute)
	s.now = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, now.Add(-48*time.Hour), p.cutoffs[0])
}

func TestSweep_ZeroRetentionKeepsEverything(t *testing.T) {
	p := &fakePurger{}
	n, err := NewRetentionSweeper(p, 0, time.Minute).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, p.calls())
}

func TestSweep_Error(t *testing.T) {
	p := &fakePurger{err: errors.New("disk full")}
	_, err := NewRetentionSweeper(p, time.Hour, time.Minute).Sweep(context.Background())
	assert.EqualError(t, err, "disk full")
}

func TestRun_StopsOnCancel(t *testing.T) {
	p := &fakePurger{}
	s := NewRetentionSweeper(p, time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return p.calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
