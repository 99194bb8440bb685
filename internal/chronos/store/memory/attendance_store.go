package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/ledger"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store"
)

// AttendanceStore is an in-memory append-only ledger for tests and dev
// environments. The mutex serializes tail reads with inserts, matching
// the transactional guarantee of the sqlite store.
type AttendanceStore struct {
	mu      sync.Mutex
	records []store.AttendanceRecord
}

func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{}
}

func (s *AttendanceStore) FindLast(_ context.Context, userID string) (*store.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].UserID == userID {
			out := s.records[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (s *AttendanceStore) Append(_ context.Context, rec store.NewAttendance) (*store.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevHash := ""
	if n := len(s.records); n > 0 {
		prevHash = s.records[n-1].Hash
	}

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	full := store.AttendanceRecord{
		ID:           id,
		UserID:       rec.UserID,
		MachineID:    rec.MachineID,
		Kind:         rec.Kind,
		OccurredAtMs: rec.OccurredAtMs,
		PrevHash:     prevHash,
		Hash:         ledger.ComputeHash(rec.UserID, rec.MachineID, rec.Kind, rec.OccurredAtMs, prevHash),
		CreatedAtMs:  time.Now().UTC().UnixMilli(),
	}
	s.records = append(s.records, full)

	out := full
	return &out, nil
}

func (s *AttendanceStore) ListAll(_ context.Context) ([]store.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.AttendanceRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}
