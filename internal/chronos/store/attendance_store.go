package store

import (
	"context"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/types"
)

// AttendanceRecord is one immutable entry of the hash-chained ledger.
type AttendanceRecord struct {
	ID           string
	UserID       string
	MachineID    string
	Kind         types.RecordKind
	OccurredAtMs int64
	Hash         string
	PrevHash     string // empty for the first record of the chain
	CreatedAtMs  int64
}

// NewAttendance carries the fields the caller controls; the store fills
// in Hash/PrevHash by reading the chain tail and the new record must be
// persisted in the same transaction (the chain serializes on the tail).
type NewAttendance struct {
	ID           string
	UserID       string
	MachineID    string
	Kind         types.RecordKind
	OccurredAtMs int64
}

// AttendanceStore persists the append-only attendance ledger.
type AttendanceStore interface {
	// FindLast returns the user's most recent record, or nil if the user
	// has never scanned.
	FindLast(ctx context.Context, userID string) (*AttendanceRecord, error)

	// Append links rec to the current chain tail and persists it. The
	// read of the previous hash and the insert happen atomically; two
	// concurrent appends can never observe the same tail.
	Append(ctx context.Context, rec NewAttendance) (*AttendanceRecord, error)

	// ListAll returns every record in creation order, for chain
	// verification.
	ListAll(ctx context.Context) ([]AttendanceRecord, error)
}
