package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/ledger"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/types"
	dbpkg "github.com/c1c3ru/ChronosSystem-sub001/internal/db"
)

type AttendanceStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAttendanceStore(db *sql.DB, writer *dbpkg.Worker) *AttendanceStore {
	return &AttendanceStore{db: db, writer: writer}
}

func (s *AttendanceStore) FindLast(ctx context.Context, userID string) (*store.AttendanceRecord, error) {
	var (
		rec  store.AttendanceRecord
		kind string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, user_id, machine_id, kind, occurred_at_ms, hash, prev_hash, created_at_ms
FROM attendance_records
WHERE user_id = ?
ORDER BY rowid DESC
LIMIT 1;
`, userID).Scan(
		&rec.ID, &rec.UserID, &rec.MachineID, &kind,
		&rec.OccurredAtMs, &rec.Hash, &rec.PrevHash, &rec.CreatedAtMs,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindLast query: %w", err)
	}

	rec.Kind = types.RecordKind(kind)
	return &rec, nil
}

// Append reads the chain tail and inserts the new record inside one
// writer transaction. The single-writer queue guarantees two appends can
// never read the same tail.
func (s *AttendanceStore) Append(ctx context.Context, rec store.NewAttendance) (*store.AttendanceRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if !rec.Kind.Valid() {
		return nil, fmt.Errorf("Append: invalid kind %q", rec.Kind)
	}

	full := store.AttendanceRecord{
		ID:           rec.ID,
		UserID:       rec.UserID,
		MachineID:    rec.MachineID,
		Kind:         rec.Kind,
		OccurredAtMs: rec.OccurredAtMs,
		CreatedAtMs:  time.Now().UTC().UnixMilli(),
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var prevHash string
		err := tx.QueryRowContext(ctx, `
SELECT hash FROM attendance_records ORDER BY rowid DESC LIMIT 1;
`).Scan(&prevHash)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("Append read tail: %w", err)
		}

		full.PrevHash = prevHash
		full.Hash = ledger.ComputeHash(
			full.UserID, full.MachineID, full.Kind, full.OccurredAtMs, prevHash,
		)

		if _, err := tx.ExecContext(ctx, `
INSERT INTO attendance_records(
  id, user_id, machine_id, kind, occurred_at_ms, hash, prev_hash, created_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
			full.ID, full.UserID, full.MachineID, string(full.Kind),
			full.OccurredAtMs, full.Hash, full.PrevHash, full.CreatedAtMs,
		); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &full, nil
}

func (s *AttendanceStore) ListAll(ctx context.Context) ([]store.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, machine_id, kind, occurred_at_ms, hash, prev_hash, created_at_ms
FROM attendance_records
ORDER BY rowid ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("ListAll query: %w", err)
	}
	defer rows.Close()

	var out []store.AttendanceRecord
	for rows.Next() {
		var (
			rec  store.AttendanceRecord
			kind string
		)
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.MachineID, &kind,
			&rec.OccurredAtMs, &rec.Hash, &rec.PrevHash, &rec.CreatedAtMs,
		); err != nil {
			return nil, fmt.Errorf("ListAll scan: %w", err)
		}
		rec.Kind = types.RecordKind(kind)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAll rows: %w", err)
	}
	return out, nil
}
