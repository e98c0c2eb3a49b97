package messages

import "time"

// StatusChanged is published for every accepted state mutation and every
// sweep transition. Keyed by callsign so consumers see per-vehicle order.
type StatusChanged struct {
	Callsign     string    `json:"callsign"`
	Online       bool      `json:"online"`
	DriverStatus string    `json:"driver_status,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	ChangedAt    time.Time `json:"changed_at"`
}
