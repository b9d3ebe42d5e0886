package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ed-andre/nowrepsync/pkg/db/postgres"
	"github.com/ed-andre/nowrepsync/pkg/entities"
)

// ErrNoSnapshot is returned when an entity has no stored snapshots.
var ErrNoSnapshot = errors.New("no snapshot found")

// ErrInvalidPayload is returned when a snapshot payload is rejected before
// touching storage. Callers use it to tell caller mistakes from storage
// failures.
var ErrInvalidPayload = errors.New("invalid snapshot payload")

// SnapshotRecord identifies one stored raw payload.
type SnapshotRecord struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot is a stored raw payload plus its identifying record.
type Snapshot struct {
	SnapshotRecord
	Payload json.RawMessage `json:"payload"`
}

// StoreSnapshot appends a raw payload to the entity's snapshot table. The
// payload is stored verbatim; it must already be valid JSON.
func (db *DB) StoreSnapshot(ctx context.Context, entity entities.Entity, payload json.RawMessage) (SnapshotRecord, error) {
	if !entity.IsValid() {
		return SnapshotRecord{}, fmt.Errorf("invalid entity: %q", entity)
	}
	if !json.Valid(payload) {
		return SnapshotRecord{}, fmt.Errorf("%w: payload for %s is not valid JSON", ErrInvalidPayload, entity)
	}

	var rec SnapshotRecord
	query := fmt.Sprintf(
		"INSERT INTO %s (payload) VALUES ($1) RETURNING id, created_at",
		entity.SnapshotTable(),
	)
	if err := db.QueryRow(ctx, query, payload).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return SnapshotRecord{}, fmt.Errorf("store snapshot for %s: %w", entity, err)
	}
	return rec, nil
}

// LatestSnapshot returns the most recently stored snapshot for the entity.
// Ties on created_at break on the higher id, so two snapshots stored within
// the same clock tick still resolve deterministically.
func (db *DB) LatestSnapshot(ctx context.Context, entity entities.Entity) (Snapshot, error) {
	if !entity.IsValid() {
		return Snapshot{}, fmt.Errorf("invalid entity: %q", entity)
	}

	var snap Snapshot
	query := fmt.Sprintf(
		"SELECT id, created_at, payload FROM %s ORDER BY created_at DESC, id DESC LIMIT 1",
		entity.SnapshotTable(),
	)
	err := db.QueryRow(ctx, query).Scan(&snap.ID, &snap.CreatedAt, &snap.Payload)
	if postgres.IsNoRows(err) {
		return Snapshot{}, fmt.Errorf("%w for %s", ErrNoSnapshot, entity)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load latest snapshot for %s: %w", entity, err)
	}
	return snap, nil
}

// PruneSnapshots deletes all but the newest keep snapshots for the entity and
// returns how many rows were removed. keep < 1 is rejected so a bad caller
// cannot wipe an entity's history.
func (db *DB) PruneSnapshots(ctx context.Context, entity entities.Entity, keep int) (int64, error) {
	if !entity.IsValid() {
		return 0, fmt.Errorf("invalid entity: %q", entity)
	}
	if keep < 1 {
		return 0, fmt.Errorf("keep count must be at least 1, got %d", keep)
	}

	table := entity.SnapshotTable()
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id NOT IN (
			SELECT id FROM %s ORDER BY created_at DESC, id DESC LIMIT $1
		)`, table, table)

	tag, err := db.GetExecutor(ctx).Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots for %s: %w", entity, err)
	}
	return tag.RowsAffected(), nil
}
