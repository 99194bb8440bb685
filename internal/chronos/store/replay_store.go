package store

import (
	"context"
	"time"
)

// ReplayRecord tracks a token nonce from issuance to consumption. Rows
// are kept after consumption for audit; only long-expired rows are
// garbage-collected by the pruner.
type ReplayRecord struct {
	Nonce        string
	MachineID    string
	IssuedAtMs   int64
	ExpiresAtMs  int64
	Consumed     bool
	ConsumedAtMs int64 // 0 while unconsumed
	ConsumedBy   string
}

// ReplayStore is the authoritative record of which nonces have been
// consumed. It must be persistent: an in-process nonce set silently
// reopens the replay window on restart or across instances.
type ReplayStore interface {
	// Create registers a freshly issued, unconsumed nonce. Creating an
	// already known nonce is a no-op.
	Create(ctx context.Context, rec ReplayRecord) error

	// Claim atomically consumes the nonce, creating the record first if
	// issuance never registered it. It returns false when the nonce was
	// already consumed. Exactly one of any number of concurrent claims
	// for the same nonce wins; the check-and-set is a single atomic
	// storage operation.
	Claim(ctx context.Context, nonce, machineID, consumedBy string, issuedAtMs, expiresAtMs int64) (bool, error)

	// PruneExpiredBefore deletes records whose expiry is older than
	// cutoff, returning how many were removed.
	PruneExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
