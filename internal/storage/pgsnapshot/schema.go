package pgsnapshot

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS vehicle_status (
  callsign TEXT PRIMARY KEY,
  last_ping_at TIMESTAMPTZ NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  explicit_online BOOLEAN NULL,
  driver_status_code TEXT NULL,
  driver_status_label TEXT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_status_updated_at ON vehicle_status(updated_at)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
