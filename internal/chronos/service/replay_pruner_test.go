package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/service"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store/memory"
)

func TestReplayPruner_DisabledWhenRetentionZero(t *testing.T) {
	rs := memory.NewReplayStore()
	pruner := service.NewReplayPruner(rs, service.PrunerConfig{
		RetentionDays: 0,
		IntervalHours: 1,
	}, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pruner.Start(ctx)
	// Stop should return immediately without error.
	pruner.Stop()
}

func TestReplayPruner_PrunesExpiredNonces(t *testing.T) {
	rs := memory.NewReplayStore()
	ctx := context.Background()

	now := time.Now().UTC()

	// A nonce that expired 40 days ago.
	old := store.ReplayRecord{
		Nonce:       "nonce-old",
		MachineID:   "machine-1",
		IssuedAtMs:  now.AddDate(0, 0, -40).UnixMilli(),
		ExpiresAtMs: now.AddDate(0, 0, -40).Add(time.Minute).UnixMilli(),
	}
	if err := rs.Create(ctx, old); err != nil {
		t.Fatalf("insert old: %v", err)
	}

	// A nonce that expired yesterday.
	recent := store.ReplayRecord{
		Nonce:       "nonce-recent",
		MachineID:   "machine-1",
		IssuedAtMs:  now.AddDate(0, 0, -1).UnixMilli(),
		ExpiresAtMs: now.AddDate(0, 0, -1).Add(time.Minute).UnixMilli(),
	}
	if err := rs.Create(ctx, recent); err != nil {
		t.Fatalf("insert recent: %v", err)
	}

	// Prune directly via the store (same operation the pruner calls).
	cutoff := now.AddDate(0, 0, -30)
	deleted, err := rs.PruneExpiredBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("PruneExpiredBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned, got %d", deleted)
	}

	if _, ok := rs.Record("nonce-recent"); !ok {
		t.Error("recent nonce should survive the prune")
	}
	if _, ok := rs.Record("nonce-old"); ok {
		t.Error("old nonce should have been pruned")
	}
}

func TestReplayPruner_StopIsIdempotent(t *testing.T) {
	rs := memory.NewReplayStore()
	pruner := service.NewReplayPruner(rs, service.PrunerConfig{
		RetentionDays: 30,
		IntervalHours: 1,
	}, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	pruner.Start(ctx)

	cancel()
	// Multiple stops should not panic.
	pruner.Stop()
	pruner.Stop()
}
