package fake

import (
	"context"
)

// FakeClient stands in for the dispatch platform when no upstream is
// configured (local development, tests).
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

func (f *FakeClient) ListVehicles(ctx context.Context) ([]map[string]any, error) {
	return []map[string]any{
		{"callsign": "AB12", "registration": "AB12 CDE", "suspended": false},
		{"callsign": "CD34", "registration": "CD34 EFG", "suspended": false},
		{"callsign": "EF56", "registration": "EF56 GHI", "suspended": true},
	}, nil
}
