package fleet

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/FleetPulse/internal/broker/messages"
	"github.com/BearBump/FleetPulse/internal/models"
	"github.com/BearBump/FleetPulse/internal/services/broadcast"
	"github.com/BearBump/FleetPulse/internal/services/ingest"
	"github.com/pkg/errors"
)

type SnapshotRepository interface {
	LoadSnapshot(ctx context.Context) ([]models.StatusRecord, error)
	SaveSnapshot(ctx context.Context, recs []models.StatusRecord) error
}

// Saver is the debounced persistence gateway; MarkDirty never blocks.
type Saver interface {
	MarkDirty()
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Broadcaster interface {
	Broadcast(ev broadcast.Event)
}

// Service applies webhook bodies to the state store and fans out accepted
// changes to stream subscribers, the debounced saver, and (optionally) a
// kafka topic. Saver, producer and broadcaster are all optional.
type Service struct {
	store    *Store
	hub      Broadcaster
	saver    Saver
	producer Producer
	topic    string

	startedAtUnixNano  int64
	lastEventUnixNano  atomic.Int64
	eventsReceived     atomic.Int64
	eventsApplied      atomic.Int64
	eventsNoCallsign   atomic.Int64
	eventsRejected     atomic.Int64
	sweepTransitions   atomic.Int64
	lastRejectMu       sync.Mutex
	lastRejectCallsign string
}

func NewService(store *Store, hub Broadcaster, saver Saver, producer Producer, topic string) *Service {
	return &Service{
		store:             store,
		hub:               hub,
		saver:             saver,
		producer:          producer,
		topic:             topic,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

// Load seeds the store from the snapshot repository. A missing snapshot is
// an empty fleet, not an error.
func (s *Service) Load(ctx context.Context, repo SnapshotRepository) error {
	recs, err := repo.LoadSnapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "load snapshot")
	}
	n := s.store.Seed(recs, time.Now().UTC())
	slog.Info("fleet state loaded", "records", n)
	return nil
}

// ProcessWebhook applies one webhook body of the given kind. Events with no
// resolvable callsign are skipped, stale events are silent no-ops; both are
// counted so the caller can report received vs. updated.
func (s *Service) ProcessWebhook(ctx context.Context, kind models.EventKind, body []byte, now time.Time) (received, updated int) {
	events := ingest.Events(body)
	received = len(events)
	s.eventsReceived.Add(int64(received))

	for _, ev := range events {
		callsign := models.NormalizeCallsign(ingest.Callsign(ev))
		if callsign == "" {
			s.eventsNoCallsign.Add(1)
			slog.Debug("webhook event without callsign skipped", "kind", kind)
			continue
		}

		at := ingest.EventTime(ev, now)
		inf := ingest.Infer(ev, kind)
		patch := Patch{
			Kind:   kind,
			At:     at,
			Online: inf.Online,
			Code:   inf.Code,
			Label:  inf.Label,
		}

		view, ok := s.store.Apply(callsign, patch, now)
		if !ok {
			s.eventsRejected.Add(1)
			s.lastRejectMu.Lock()
			s.lastRejectCallsign = callsign
			s.lastRejectMu.Unlock()
			continue
		}
		updated++
		s.eventsApplied.Add(1)
		s.lastEventUnixNano.Store(now.UnixNano())
		s.notify(view, now)
		if s.saver != nil {
			s.saver.MarkDirty()
		}
	}
	return received, updated
}

// SweepNow re-derives every record against the timeout and announces only
// genuine transitions. Stored fields are untouched, so no save is kicked.
func (s *Service) SweepNow(ctx context.Context, now time.Time) int {
	changed := s.store.SweepStale(now)
	for _, view := range changed {
		s.notify(view, now)
	}
	s.sweepTransitions.Add(int64(len(changed)))
	return len(changed)
}

func (s *Service) Views(now time.Time) []models.VehicleStatusView {
	return s.store.Views(now)
}

func (s *Service) Snapshot() []models.StatusRecord {
	return s.store.Snapshot()
}

// notify runs outside the store lock: a slow subscriber or broker must
// never stall ingestion.
func (s *Service) notify(view models.VehicleStatusView, now time.Time) {
	if s.hub != nil {
		data, err := json.Marshal(view)
		if err == nil {
			s.hub.Broadcast(broadcast.Event{Name: "status", Data: data})
		}
	}

	if s.producer != nil && s.topic != "" {
		msg := messages.StatusChanged{
			Callsign:     view.Callsign,
			Online:       view.Online,
			DriverStatus: view.DriverStatus,
			UpdatedAt:    view.UpdatedAt,
			ChangedAt:    now,
		}
		b, err := json.Marshal(msg)
		if err != nil {
			return
		}
		// Detached from the request context: the handler responds without
		// waiting on the broker, and a canceled request must not abort it.
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.producer.Publish(pubCtx, s.topic, []byte(view.Callsign), b); err != nil {
				slog.Error("publish status change", "callsign", view.Callsign, "error", err.Error())
			}
		}()
	}
}

type Stats struct {
	StartedAt        time.Time  `json:"startedAt"`
	LastEventAt      *time.Time `json:"lastEventAt,omitempty"`
	Vehicles         int        `json:"vehicles"`
	EventsReceived   int64      `json:"eventsReceived"`
	EventsApplied    int64      `json:"eventsApplied"`
	EventsNoCallsign int64      `json:"eventsNoCallsign"`
	EventsRejected   int64      `json:"eventsRejected"`
	SweepTransitions int64      `json:"sweepTransitions"`
	LastRejected     string     `json:"lastRejected,omitempty"`
}

func (s *Service) Stats() Stats {
	st := Stats{
		StartedAt:        time.Unix(0, s.startedAtUnixNano).UTC(),
		Vehicles:         s.store.Len(),
		EventsReceived:   s.eventsReceived.Load(),
		EventsApplied:    s.eventsApplied.Load(),
		EventsNoCallsign: s.eventsNoCallsign.Load(),
		EventsRejected:   s.eventsRejected.Load(),
		SweepTransitions: s.sweepTransitions.Load(),
	}
	if n := s.lastEventUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastEventAt = &t
	}
	s.lastRejectMu.Lock()
	st.LastRejected = s.lastRejectCallsign
	s.lastRejectMu.Unlock()
	return st
}
