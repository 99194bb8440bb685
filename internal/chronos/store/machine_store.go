package store

import (
	"context"
)

// Machine is a registered kiosk terminal.
type Machine struct {
	ID       string
	Name     string
	Location string
	IsActive bool
}

// MachineStore resolves kiosk terminals. FindActive returns nil (no
// error) when the machine does not exist or has been deactivated —
// the two cases are indistinguishable to a scanning client on purpose.
type MachineStore interface {
	FindActive(ctx context.Context, machineID string) (*Machine, error)
}
