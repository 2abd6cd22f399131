package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"deltaLens/internal/model"
	"deltaLens/internal/storage"
)

// Requires a disposable database: DELTA_TEST_PG_DSN=postgres://...
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DELTA_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("DELTA_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := store.pool.Exec(ctx, `TRUNCATE pool_snapshots, pool_snapshot_history, session_state`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return store
}

func TestPostgresStoreSequenceGuard(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	older, err := store.NextSequence(ctx)
	if err != nil {
		t.Fatalf("next seq: %v", err)
	}
	newer, err := store.NextSequence(ctx)
	if err != nil {
		t.Fatalf("next seq: %v", err)
	}

	fresh := model.PoolSnapshot{
		SchemaVersion: model.SnapshotSchemaVersion,
		Seq:           newer,
		Account:       "0xabc",
		ChainID:       5001,
		UpdatedAt:     time.Now().UTC(),
		Pools:         []model.Pool{{Symbol: "rFRA"}},
	}
	if err := store.SavePools(ctx, fresh); err != nil {
		t.Fatalf("save: %v", err)
	}

	stale := fresh
	stale.Seq = older
	if err := store.SavePools(ctx, stale); !errors.Is(err, storage.ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot, got %v", err)
	}

	got, err := store.LoadPools(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Seq != newer || len(got.Pools) != 1 || got.Pools[0].Symbol != "rFRA" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestPostgresStoreSession(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	session := model.Session{WalletAddress: "0xabc", SelectedPool: "rMAV"}
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}
	got, err := store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if got != session {
		t.Fatalf("session mismatch: %+v", got)
	}
}
