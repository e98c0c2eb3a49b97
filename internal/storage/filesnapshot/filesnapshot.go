package filesnapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BearBump/FleetPulse/internal/models"
	"github.com/pkg/errors"
)

// Storage persists the fleet snapshot as a JSON file. Writes go through a
// temp file and rename so a crash mid-write never truncates the snapshot.
type Storage struct {
	path string
}

func New(path string) *Storage {
	return &Storage{path: path}
}

func (s *Storage) LoadSnapshot(ctx context.Context) ([]models.StatusRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot")
	}
	if len(data) == 0 {
		return nil, nil
	}

	// Legacy snapshots may lack fields added later; absent fields simply
	// decode to nil (no ping => offline, no explicit flag => unknown).
	var recs []models.StatusRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}

	out := recs[:0]
	for _, r := range recs {
		if models.NormalizeCallsign(r.Callsign) == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Storage) SaveSnapshot(ctx context.Context, recs []models.StatusRecord) error {
	if recs == nil {
		recs = []models.StatusRecord{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create snapshot dir")
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "replace snapshot")
	}
	return nil
}
