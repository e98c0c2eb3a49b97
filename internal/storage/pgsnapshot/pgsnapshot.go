package pgsnapshot

import (
	"context"

	"github.com/BearBump/FleetPulse/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Storage keeps the current fleet snapshot in postgres, one row per
// callsign. Only the latest state is stored, never transition history.
type Storage struct {
	db *pgxpool.Pool
}

func New(connString string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Storage{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Storage) LoadSnapshot(ctx context.Context) ([]models.StatusRecord, error) {
	rows, err := s.db.Query(ctx, `
SELECT callsign, last_ping_at, updated_at, explicit_online, driver_status_code, driver_status_label
FROM vehicle_status
ORDER BY callsign`)
	if err != nil {
		return nil, errors.Wrap(err, "query snapshot")
	}
	defer rows.Close()

	var out []models.StatusRecord
	for rows.Next() {
		var r models.StatusRecord
		if err := rows.Scan(&r.Callsign, &r.LastPingAt, &r.UpdatedAt, &r.ExplicitOnline, &r.DriverStatusCode, &r.DriverStatusLabel); err != nil {
			return nil, errors.Wrap(err, "scan snapshot row")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate snapshot rows")
	}
	return out, nil
}

func (s *Storage) SaveSnapshot(ctx context.Context, recs []models.StatusRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(`
INSERT INTO vehicle_status (callsign, last_ping_at, updated_at, explicit_online, driver_status_code, driver_status_label)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (callsign) DO UPDATE SET
  last_ping_at = EXCLUDED.last_ping_at,
  updated_at = EXCLUDED.updated_at,
  explicit_online = EXCLUDED.explicit_online,
  driver_status_code = EXCLUDED.driver_status_code,
  driver_status_label = EXCLUDED.driver_status_label`,
			r.Callsign, r.LastPingAt, r.UpdatedAt, r.ExplicitOnline, r.DriverStatusCode, r.DriverStatusLabel)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert snapshot")
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}
