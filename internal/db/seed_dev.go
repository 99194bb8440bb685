package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// Machines to pre-register as active kiosks in dev.
	Machines []SeedMachine
}

type SeedMachine struct {
	ID       string
	Name     string
	Location string
}

// SeedDev registers a starter kiosk machine (plus any extras from opt)
// so a dev server can issue and accept tokens out of the box.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	machines := append([]SeedMachine{
		{ID: "machine-1", Name: "Main Entrance", Location: "Lobby"},
	}, opt.Machines...)

	now := time.Now().UTC().UnixMilli()

	for _, m := range machines {
		if _, err := db.ExecContext(ctx, `
INSERT INTO machines(machine_id, name, location, is_active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, 1, ?, ?)
ON CONFLICT(machine_id) DO UPDATE SET
  name = excluded.name,
  location = excluded.location,
  is_active = 1,
  updated_at_ms = excluded.updated_at_ms;
`, m.ID, m.Name, m.Location, now, now); err != nil {
			return fmt.Errorf("seed machine %s: %w", m.ID, err)
		}
	}

	return nil
}
