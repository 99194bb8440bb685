package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store"
)

type MachineStore struct {
	db *sql.DB
}

func NewMachineStore(db *sql.DB) *MachineStore {
	return &MachineStore{db: db}
}

// FindActive returns nil for unknown and deactivated machines alike; a
// scanning client learns nothing about which case it hit.
func (s *MachineStore) FindActive(ctx context.Context, machineID string) (*store.Machine, error) {
	machineID = strings.TrimSpace(machineID)
	if machineID == "" {
		return nil, nil
	}

	var m store.Machine
	var active int
	err := s.db.QueryRowContext(ctx, `
SELECT machine_id, name, location, is_active
FROM machines
WHERE machine_id = ?;
`, machineID).Scan(&m.ID, &m.Name, &m.Location, &active)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindActive query: %w", err)
	}
	if active != 1 {
		return nil, nil
	}

	m.IsActive = true
	return &m, nil
}
