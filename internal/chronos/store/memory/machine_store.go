package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store"
)

type MachineStore struct {
	mu       sync.RWMutex
	machines map[string]store.Machine
}

func NewMachineStore(machines []store.Machine) *MachineStore {
	m := make(map[string]store.Machine, len(machines))
	for _, machine := range machines {
		id := strings.TrimSpace(machine.ID)
		if id == "" {
			continue
		}
		machine.ID = id
		m[id] = machine
	}
	return &MachineStore{machines: m}
}

func (s *MachineStore) FindActive(_ context.Context, machineID string) (*store.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.machines[machineID]
	if !ok || !m.IsActive {
		return nil, nil
	}
	out := m
	return &out, nil
}
