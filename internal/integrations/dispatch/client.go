package dispatch

import (
	"context"
	"fmt"
)

// Client lists the fleet's vehicles from the upstream dispatch platform.
// Vehicles are passed through as loose objects; only the "suspended" flag
// is guaranteed present and boolean.
type Client interface {
	ListVehicles(ctx context.Context) ([]map[string]any, error)
}

// UpstreamError carries the upstream HTTP status and body so the proxy can
// pass them through instead of swallowing them.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("dispatch upstream http %d", e.Status)
}
