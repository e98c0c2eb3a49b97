package fleet

import (
	"context"
	"sync/atomic"
	"time"
)

// Sweeper periodically re-evaluates derived online state so a vehicle that
// simply stops pinging flips to offline without waiting for a new event.
type Sweeper struct {
	svc      *Service
	interval time.Duration

	triggerCh chan struct{}

	totalSweeps       atomic.Int64
	totalTransitions  atomic.Int64
	lastSweepUnixNano atomic.Int64
}

// NewSweeper clamps the interval to the staleness timeout so a transition
// is never missed by more than one tick.
func NewSweeper(svc *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if t := svc.store.Timeout(); interval > t {
		interval = t
	}
	return &Sweeper{
		svc:       svc,
		interval:  interval,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger forces an immediate sweep (best-effort, non-blocking).
func (w *Sweeper) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			w.runOnce(ctx)
		case <-w.triggerCh:
			w.runOnce(ctx)
		}
	}
}

func (w *Sweeper) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	w.lastSweepUnixNano.Store(now.UnixNano())
	n := w.svc.SweepNow(ctx, now)
	w.totalSweeps.Add(1)
	w.totalTransitions.Add(int64(n))
}

type SweeperStats struct {
	LastSweepAt      *time.Time `json:"lastSweepAt,omitempty"`
	TotalSweeps      int64      `json:"totalSweeps"`
	TotalTransitions int64      `json:"totalTransitions"`
}

func (w *Sweeper) Stats() SweeperStats {
	st := SweeperStats{
		TotalSweeps:      w.totalSweeps.Load(),
		TotalTransitions: w.totalTransitions.Load(),
	}
	if n := w.lastSweepUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastSweepAt = &t
	}
	return st
}
