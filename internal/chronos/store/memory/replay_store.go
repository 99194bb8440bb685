package memory

import (
	"context"
	"sync"
	"time"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store"
)

// ReplayStore keeps nonce records in a mutex-protected map. Test/dev
// only: process memory is not an acceptable replay authority in
// production (restarts reopen the replay window).
type ReplayStore struct {
	mu     sync.Mutex
	nonces map[string]store.ReplayRecord
}

func NewReplayStore() *ReplayStore {
	return &ReplayStore{nonces: make(map[string]store.ReplayRecord)}
}

func (s *ReplayStore) Create(_ context.Context, rec store.ReplayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nonces[rec.Nonce]; ok {
		return nil
	}
	s.nonces[rec.Nonce] = rec
	return nil
}

func (s *ReplayStore) Claim(_ context.Context, nonce, machineID, consumedBy string, issuedAtMs, expiresAtMs int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.nonces[nonce]
	if !ok {
		rec = store.ReplayRecord{
			Nonce:       nonce,
			MachineID:   machineID,
			IssuedAtMs:  issuedAtMs,
			ExpiresAtMs: expiresAtMs,
		}
	}
	if rec.Consumed {
		return false, nil
	}

	rec.Consumed = true
	rec.ConsumedAtMs = time.Now().UTC().UnixMilli()
	rec.ConsumedBy = consumedBy
	s.nonces[nonce] = rec
	return true, nil
}

func (s *ReplayStore) PruneExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoffMs := cutoff.UTC().UnixMilli()
	var removed int64
	for nonce, rec := range s.nonces {
		if rec.ExpiresAtMs < cutoffMs {
			delete(s.nonces, nonce)
			removed++
		}
	}
	return removed, nil
}

// Record returns the stored state of a nonce. Test-only helper.
func (s *ReplayStore) Record(nonce string) (store.ReplayRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.nonces[nonce]
	return rec, ok
}
