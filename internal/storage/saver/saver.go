package saver

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/FleetPulse/internal/models"
)

type Snapshotter interface {
	SaveSnapshot(ctx context.Context, recs []models.StatusRecord) error
}

// Saver debounces snapshot writes: a burst of mutations collapses into one
// write of the latest full state, no sooner than the debounce window after
// the last MarkDirty. I/O failures are logged and swallowed; durability is
// best-effort and must never fail the mutation path.
type Saver struct {
	repo     Snapshotter
	source   func() []models.StatusRecord
	debounce time.Duration

	dirtyCh chan struct{}
}

func New(repo Snapshotter, source func() []models.StatusRecord, debounce time.Duration) *Saver {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Saver{
		repo:     repo,
		source:   source,
		debounce: debounce,
		dirtyCh:  make(chan struct{}, 1),
	}
}

// MarkDirty schedules a write. Never blocks.
func (s *Saver) MarkDirty() {
	select {
	case s.dirtyCh <- struct{}{}:
	default:
	}
}

// Run writes snapshots until ctx is canceled. Each new mark within the
// debounce window reschedules the pending write rather than stacking
// another one. Pending state is flushed once on shutdown.
func (s *Saver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.dirtyCh:
		}

		t := time.NewTimer(s.debounce)
	quiet:
		for {
			select {
			case <-ctx.Done():
				t.Stop()
				s.flush(context.Background())
				return ctx.Err()
			case <-s.dirtyCh:
				if !t.Stop() {
					<-t.C
				}
				t.Reset(s.debounce)
			case <-t.C:
				break quiet
			}
		}
		s.flush(ctx)
	}
}

func (s *Saver) flush(ctx context.Context) {
	if err := s.repo.SaveSnapshot(ctx, s.source()); err != nil {
		slog.Error("save snapshot", "error", err.Error())
	}
}
