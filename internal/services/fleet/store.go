package fleet

import (
	"sort"
	"sync"
	"time"

	"github.com/BearBump/FleetPulse/internal/models"
)

// Patch is what one accepted event is entitled to write into a record.
type Patch struct {
	Kind models.EventKind
	At   time.Time

	Online *bool
	Code   *string
	Label  *string
}

// Store is the single authority over per-callsign state. All mutation goes
// through Apply/SweepStale under one mutex; reads take consistent snapshots.
type Store struct {
	mu      sync.RWMutex
	records map[string]*models.StatusRecord

	// Derived online as of the last notification per callsign, so the
	// sweep announces a timeout transition exactly once.
	lastNotified map[string]bool

	timeout time.Duration
}

func NewStore(timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Store{
		records:      make(map[string]*models.StatusRecord),
		lastNotified: make(map[string]bool),
		timeout:      timeout,
	}
}

func (s *Store) Timeout() time.Duration { return s.timeout }

// ComputeOnline is the only online derivation in the system. An explicit
// offline flag is a sticky override; otherwise a vehicle is online exactly
// when its last ping is within the staleness timeout.
func ComputeOnline(rec *models.StatusRecord, now time.Time, timeout time.Duration) bool {
	if rec.ExplicitOnline != nil && !*rec.ExplicitOnline {
		return false
	}
	if rec.LastPingAt == nil {
		return false
	}
	if now.Sub(*rec.LastPingAt) > timeout {
		return false
	}
	return true
}

// Apply merges one event patch into the record for callsign, creating it on
// first contact. Out-of-order events are rejected as a no-op: the gate is
// the field the event kind is allowed to advance (lastPingAt for pings,
// updatedAt for everything else), and equal timestamps are accepted so
// duplicate delivery stays idempotent.
func (s *Store) Apply(callsign string, p Patch, now time.Time) (models.VehicleStatusView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[callsign]
	if !exists {
		rec = &models.StatusRecord{Callsign: callsign}
	}

	if exists {
		if p.Kind == models.EventKindPing && rec.LastPingAt != nil {
			if p.At.Before(*rec.LastPingAt) {
				return models.VehicleStatusView{}, false
			}
		} else if p.At.Before(rec.UpdatedAt) {
			return models.VehicleStatusView{}, false
		}
	}

	switch p.Kind {
	case models.EventKindPing:
		at := p.At
		rec.LastPingAt = &at
		if p.Online != nil {
			// Rare: a ping carrying an explicit boolean.
			rec.ExplicitOnline = p.Online
		} else if rec.ExplicitOnline == nil {
			// First signal for this vehicle: a ping alone counts as online.
			// It never clears an existing explicit offline.
			rec.ExplicitOnline = ptrBool(true)
		}

	case models.EventKindStatus:
		at := p.At
		rec.LastPingAt = &at
		if p.Online != nil {
			rec.ExplicitOnline = p.Online
		} else {
			// Active job telemetry always implies the driver is working.
			rec.ExplicitOnline = ptrBool(true)
		}
		if p.Code != nil {
			rec.DriverStatusCode = p.Code
		}
		if p.Label != nil {
			rec.DriverStatusLabel = p.Label
		}

	case models.EventKindShift:
		if p.Code != nil {
			rec.DriverStatusCode = p.Code
		}
		if p.Label != nil {
			rec.DriverStatusLabel = p.Label
		}
		if p.Online != nil {
			rec.ExplicitOnline = p.Online
			if *p.Online {
				at := p.At
				rec.LastPingAt = &at
			} else {
				// An ended shift clears the ping so staleness can never
				// resurrect it as recently-seen.
				rec.LastPingAt = nil
			}
		}
	}

	if p.At.After(rec.UpdatedAt) {
		rec.UpdatedAt = p.At
	}
	s.records[callsign] = rec

	online := ComputeOnline(rec, now, s.timeout)
	s.lastNotified[callsign] = online
	return viewOf(rec, online), true
}

// SweepStale re-derives online for every record and returns the views whose
// derived value changed since it was last announced, updating the marker so
// a vehicle that stays offline is not re-announced every tick.
func (s *Store) SweepStale(now time.Time) []models.VehicleStatusView {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []models.VehicleStatusView
	for cs, rec := range s.records {
		online := ComputeOnline(rec, now, s.timeout)
		if s.lastNotified[cs] == online {
			continue
		}
		s.lastNotified[cs] = online
		changed = append(changed, viewOf(rec, online))
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].Callsign < changed[j].Callsign })
	return changed
}

// View returns the derived view for one callsign.
func (s *Store) View(callsign string, now time.Time) (models.VehicleStatusView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[callsign]
	if !ok {
		return models.VehicleStatusView{}, false
	}
	return viewOf(rec, ComputeOnline(rec, now, s.timeout)), true
}

// Views returns a consistent derived view of the whole fleet, ordered by
// callsign.
func (s *Store) Views(now time.Time) []models.VehicleStatusView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.VehicleStatusView, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, viewOf(rec, ComputeOnline(rec, now, s.timeout)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Callsign < out[j].Callsign })
	return out
}

// Snapshot deep-copies every record for persistence, ordered by callsign.
func (s *Store) Snapshot() []models.StatusRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.StatusRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Callsign < out[j].Callsign })
	return out
}

// Seed loads persisted records at startup. Callsigns are re-normalized and
// the notification markers are primed with the current derivation, so the
// first sweep only announces genuine transitions.
func (s *Store) Seed(recs []models.StatusRecord, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range recs {
		cs := models.NormalizeCallsign(recs[i].Callsign)
		if cs == "" {
			continue
		}
		rec := recs[i].Clone()
		rec.Callsign = cs
		s.records[cs] = rec
		s.lastNotified[cs] = ComputeOnline(rec, now, s.timeout)
		n++
	}
	return n
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func viewOf(rec *models.StatusRecord, online bool) models.VehicleStatusView {
	v := models.VehicleStatusView{
		Callsign:  rec.Callsign,
		Online:    online,
		UpdatedAt: rec.UpdatedAt,
	}
	if rec.DriverStatusLabel != nil {
		v.DriverStatus = *rec.DriverStatusLabel
	} else if rec.DriverStatusCode != nil {
		v.DriverStatus = *rec.DriverStatusCode
	}
	return v
}

func ptrBool(b bool) *bool { return &b }
