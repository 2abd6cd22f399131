package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deltaLens/internal/model"
)

var (
	// ErrStaleSnapshot is returned when a snapshot older than the stored one is saved.
	ErrStaleSnapshot = errors.New("stale snapshot")
	// ErrSchemaMismatch is returned when a stored snapshot has an unknown schema version.
	ErrSchemaMismatch = errors.New("snapshot schema mismatch")
	// ErrNotFound is returned when no snapshot has been stored yet.
	ErrNotFound = errors.New("snapshot not found")
	// ErrAccountMismatch is returned when the stored snapshot belongs to a different account.
	ErrAccountMismatch = errors.New("snapshot belongs to another account")
)

// SnapshotStore persists the latest pool snapshot. Save must reject a
// snapshot whose Seq is lower than the stored one with ErrStaleSnapshot.
type SnapshotStore interface {
	NextSequence(ctx context.Context) (uint64, error)
	SavePools(ctx context.Context, snapshot model.PoolSnapshot) error
	LoadPools(ctx context.Context) (model.PoolSnapshot, error)
}

// SessionStore persists the selected wallet, pool and token.
type SessionStore interface {
	LoadSession(ctx context.Context) (model.Session, error)
	SaveSession(ctx context.Context, session model.Session) error
}

// Store is implemented by every backend.
type Store interface {
	SnapshotStore
	SessionStore
	Close() error
}

// CheckSequence reports whether next may replace current.
func CheckSequence(current, next uint64) error {
	if next < current {
		return fmt.Errorf("%w: seq %d < stored %d", ErrStaleSnapshot, next, current)
	}
	return nil
}

// CheckSchema validates the snapshot schema version.
func CheckSchema(snapshot model.PoolSnapshot) error {
	if snapshot.SchemaVersion != model.SnapshotSchemaVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, snapshot.SchemaVersion, model.SnapshotSchemaVersion)
	}
	return nil
}

// PoolsFor returns the stored pools if they were aggregated for account.
func PoolsFor(ctx context.Context, store SnapshotStore, account string) ([]model.Pool, error) {
	snapshot, err := store.LoadPools(ctx)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(snapshot.Account, account) {
		return nil, fmt.Errorf("%w: stored %s", ErrAccountMismatch, snapshot.Account)
	}
	return snapshot.Pools, nil
}
