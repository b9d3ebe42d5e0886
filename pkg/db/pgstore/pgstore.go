package pgstore

import (
	"context"
	"encoding/json"

	"github.com/ed-andre/nowrepsync/pkg/entities"
)

// Store is the storage surface the pipeline's activities and controllers
// depend on. *DB implements it; tests substitute fakes.
type Store interface {
	StoreSnapshot(ctx context.Context, entity entities.Entity, payload json.RawMessage) (SnapshotRecord, error)
	LatestSnapshot(ctx context.Context, entity entities.Entity) (Snapshot, error)
	PruneSnapshots(ctx context.Context, entity entities.Entity, keep int) (int64, error)

	LedgerEntry(ctx context.Context, entity entities.Entity) (LedgerEntry, bool, error)
	LedgerEntries(ctx context.Context) ([]LedgerEntry, error)

	SwapGeneration(ctx context.Context, entity entities.Entity, fill FillFunc) (int, error)
	EmptyGeneration(ctx context.Context, entity entities.Entity) (int, error)

	CountCurrent(ctx context.Context, entity entities.Entity) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

var _ Store = (*DB)(nil)
