package models

import (
	"strings"
	"time"
)

type EventKind string

const (
	EventKindPing   EventKind = "ping"
	EventKindStatus EventKind = "status"
	EventKindShift  EventKind = "shift"
)

// StatusRecord is the persisted per-callsign state. Online is never stored:
// it is derived from ExplicitOnline + LastPingAt + the staleness timeout.
type StatusRecord struct {
	Callsign          string     `json:"callsign"`
	LastPingAt        *time.Time `json:"last_ping_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ExplicitOnline    *bool      `json:"explicit_online,omitempty"`
	DriverStatusCode  *string    `json:"driver_status_code,omitempty"`
	DriverStatusLabel *string    `json:"driver_status_label,omitempty"`
}

func (r *StatusRecord) Clone() *StatusRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.LastPingAt != nil {
		t := *r.LastPingAt
		c.LastPingAt = &t
	}
	if r.ExplicitOnline != nil {
		b := *r.ExplicitOnline
		c.ExplicitOnline = &b
	}
	if r.DriverStatusCode != nil {
		s := *r.DriverStatusCode
		c.DriverStatusCode = &s
	}
	if r.DriverStatusLabel != nil {
		s := *r.DriverStatusLabel
		c.DriverStatusLabel = &s
	}
	return &c
}

// VehicleStatusView is the read/broadcast shape for a single vehicle.
type VehicleStatusView struct {
	Callsign     string    `json:"callsign"`
	Online       bool      `json:"online"`
	UpdatedAt    time.Time `json:"updatedAt"`
	DriverStatus string    `json:"driverStatus,omitempty"`
}

// NormalizeCallsign produces the canonical key form: trimmed, uppercase.
func NormalizeCallsign(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
