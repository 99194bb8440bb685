package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store"
	dbpkg "github.com/c1c3ru/ChronosSystem-sub001/internal/db"
)

type ReplayStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewReplayStore(db *sql.DB, writer *dbpkg.Worker) *ReplayStore {
	return &ReplayStore{db: db, writer: writer}
}

func (s *ReplayStore) Create(ctx context.Context, rec store.ReplayRecord) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO replay_nonces(
  nonce, machine_id, issued_at_ms, expires_at_ms, consumed
) VALUES (?, ?, ?, ?, 0);
`, rec.Nonce, rec.MachineID, rec.IssuedAtMs, rec.ExpiresAtMs); err != nil {
			return fmt.Errorf("Create replay record: %w", err)
		}
		return nil
	})
}

// Claim is the one correctness-critical check-and-set of the whole scan
// path: find-or-create the nonce row and flip consumed 0 -> 1 in a
// single transaction. The conditional UPDATE affects zero rows when the
// nonce was already consumed, so of any number of concurrent claims
// exactly one wins.
func (s *ReplayStore) Claim(ctx context.Context, nonce, machineID, consumedBy string, issuedAtMs, expiresAtMs int64) (bool, error) {
	nowMs := time.Now().UTC().UnixMilli()

	var claimed bool
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Tokens verified on a scan may never have had their row created
		// at issuance (issuance can happen on another instance).
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO replay_nonces(
  nonce, machine_id, issued_at_ms, expires_at_ms, consumed
) VALUES (?, ?, ?, ?, 0);
`, nonce, machineID, issuedAtMs, expiresAtMs); err != nil {
			return fmt.Errorf("Claim ensure row: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
UPDATE replay_nonces
SET consumed = 1,
    consumed_at_ms = ?,
    consumed_by = ?
WHERE nonce = ? AND consumed = 0;
`, nowMs, consumedBy, nonce)
		if err != nil {
			return fmt.Errorf("Claim update: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("Claim rows affected: %w", err)
		}
		claimed = n == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// PruneExpiredBefore garbage-collects nonce rows whose expiry is older
// than cutoff. Consumed rows inside the retention window stay for audit.
func (s *ReplayStore) PruneExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM replay_nonces
WHERE expires_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneExpiredBefore: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
