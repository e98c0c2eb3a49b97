package saver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/FleetPulse/internal/models"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	mu    sync.Mutex
	saves int
	last  []models.StatusRecord
}

func (r *countingRepo) SaveSnapshot(ctx context.Context, recs []models.StatusRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	r.last = recs
	return nil
}

func (r *countingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func TestSaver_BurstCoalescesIntoOneWrite(t *testing.T) {
	repo := &countingRepo{}
	var stateMu sync.Mutex
	var state []models.StatusRecord
	s := New(repo, func() []models.StatusRecord {
		stateMu.Lock()
		defer stateMu.Unlock()
		return append([]models.StatusRecord(nil), state...)
	}, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	// A burst of mutations well inside the debounce window.
	for i := 0; i < 10; i++ {
		stateMu.Lock()
		state = append(state, models.StatusRecord{Callsign: "AB12"})
		stateMu.Unlock()
		s.MarkDirty()
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return repo.count() == 1 }, time.Second, 5*time.Millisecond)

	// The single write captured the latest state, not the first.
	repo.mu.Lock()
	n := len(repo.last)
	repo.mu.Unlock()
	require.Equal(t, 10, n)

	// Quiet period: no further writes.
	time.Sleep(80 * time.Millisecond)
	require.Equal(t, 1, repo.count())

	cancel()
	<-done
}

func TestSaver_PendingStateFlushedOnShutdown(t *testing.T) {
	repo := &countingRepo{}
	s := New(repo, func() []models.StatusRecord { return nil }, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	s.MarkDirty()
	// Give Run a moment to enter the debounce wait, then shut down long
	// before the 10s window elapses.
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	require.Equal(t, 1, repo.count())
}

func TestSaver_MarkDirtyNeverBlocks(t *testing.T) {
	s := New(&countingRepo{}, func() []models.StatusRecord { return nil }, time.Second)
	// No Run loop draining: repeated marks must still return immediately.
	for i := 0; i < 100; i++ {
		s.MarkDirty()
	}
}
