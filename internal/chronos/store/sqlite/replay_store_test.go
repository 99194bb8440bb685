package sqlite_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store"
	sqlitestore "github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store/sqlite"
)

func testReplayRecord(nonce string) store.ReplayRecord {
	now := time.Now().UTC().UnixMilli()
	return store.ReplayRecord{
		Nonce:       nonce,
		MachineID:   "machine-1",
		IssuedAtMs:  now,
		ExpiresAtMs: now + 60_000,
	}
}

func TestReplayStore_ClaimOnce(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	rs := sqlitestore.NewReplayStore(conn, w)
	ctx := context.Background()

	rec := testReplayRecord("aaaa0001")
	if err := rs.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := rs.Claim(ctx, rec.Nonce, rec.MachineID, "user-1", rec.IssuedAtMs, rec.ExpiresAtMs)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !ok {
		t.Fatal("expected first claim to succeed")
	}

	ok, err = rs.Claim(ctx, rec.Nonce, rec.MachineID, "user-2", rec.IssuedAtMs, rec.ExpiresAtMs)
	if err != nil {
		t.Fatalf("second Claim: %v", err)
	}
	if ok {
		t.Fatal("expected second claim to observe already-consumed")
	}
}

func TestReplayStore_ClaimWithoutCreate(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	rs := sqlitestore.NewReplayStore(conn, w)
	ctx := context.Background()

	// A token issued on another instance has no local row; Claim must
	// find-or-create and still consume exactly once.
	rec := testReplayRecord("bbbb0002")
	ok, err := rs.Claim(ctx, rec.Nonce, rec.MachineID, "user-1", rec.IssuedAtMs, rec.ExpiresAtMs)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !ok {
		t.Fatal("expected claim of unseen nonce to succeed")
	}

	var consumed int
	var consumedBy sql.NullString
	err = conn.QueryRowContext(ctx,
		`SELECT consumed, consumed_by FROM replay_nonces WHERE nonce = ?`, rec.Nonce,
	).Scan(&consumed, &consumedBy)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if consumed != 1 {
		t.Errorf("expected consumed=1, got %d", consumed)
	}
	if !consumedBy.Valid || consumedBy.String != "user-1" {
		t.Errorf("expected consumed_by=user-1, got %v", consumedBy)
	}
}

func TestReplayStore_ConcurrentClaims_ExactlyOneWinner(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	rs := sqlitestore.NewReplayStore(conn, w)
	ctx := context.Background()

	rec := testReplayRecord("cccc0003")
	if err := rs.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const claimers = 16
	var wg sync.WaitGroup
	results := make(chan bool, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := rs.Claim(ctx, rec.Nonce, rec.MachineID, "user-1", rec.IssuedAtMs, rec.ExpiresAtMs)
			if err != nil {
				t.Errorf("Claim: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly 1 winning claim, got %d", winners)
	}
}

func TestReplayStore_CreateIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	rs := sqlitestore.NewReplayStore(conn, w)
	ctx := context.Background()

	rec := testReplayRecord("dddd0004")
	if err := rs.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Re-creating after consumption must not reset the consumed flag.
	if ok, err := rs.Claim(ctx, rec.Nonce, rec.MachineID, "user-1", rec.IssuedAtMs, rec.ExpiresAtMs); err != nil || !ok {
		t.Fatalf("Claim: ok=%v err=%v", ok, err)
	}
	if err := rs.Create(ctx, rec); err != nil {
		t.Fatalf("second Create: %v", err)
	}

	ok, err := rs.Claim(ctx, rec.Nonce, rec.MachineID, "user-2", rec.IssuedAtMs, rec.ExpiresAtMs)
	if err != nil {
		t.Fatalf("Claim after re-create: %v", err)
	}
	if ok {
		t.Fatal("re-creating a consumed nonce reopened the replay window")
	}
}

func TestReplayStore_PruneExpiredBefore(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	rs := sqlitestore.NewReplayStore(conn, w)
	ctx := context.Background()

	now := time.Now().UTC()

	old := testReplayRecord("eeee0005")
	old.ExpiresAtMs = now.AddDate(0, 0, -10).UnixMilli()
	fresh := testReplayRecord("ffff0006")

	if err := rs.Create(ctx, old); err != nil {
		t.Fatalf("Create old: %v", err)
	}
	if err := rs.Create(ctx, fresh); err != nil {
		t.Fatalf("Create fresh: %v", err)
	}

	deleted, err := rs.PruneExpiredBefore(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("PruneExpiredBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned row, got %d", deleted)
	}

	var count int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM replay_nonces`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 surviving row, got %d", count)
	}
}
