package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ed-andre/nowrepsync/pkg/db/postgres"
	"github.com/ed-andre/nowrepsync/pkg/entities"
)

// ErrLedgerConflict is returned when a ledger commit loses a compare-and-swap
// race: another writer flipped the entity's generation between this writer's
// read and its commit.
var ErrLedgerConflict = errors.New("ledger version conflict")

// LedgerEntry is one row of the version ledger.
type LedgerEntry struct {
	Entity        entities.Entity `json:"entity"`
	ActiveVersion int             `json:"activeVersion"`
	BackupVersion int             `json:"backupVersion"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// LedgerEntry returns the ledger row for the entity. An entity that has never
// been transformed has no row; that is reported as found=false, not an error.
func (db *DB) LedgerEntry(ctx context.Context, entity entities.Entity) (entry LedgerEntry, found bool, err error) {
	if !entity.IsValid() {
		return LedgerEntry{}, false, fmt.Errorf("invalid entity: %q", entity)
	}

	entry.Entity = entity
	err = db.QueryRow(ctx, `
		SELECT active_version, backup_version, updated_at
		FROM sync_metadata WHERE entity_name = $1
	`, entity.String()).Scan(&entry.ActiveVersion, &entry.BackupVersion, &entry.UpdatedAt)
	if postgres.IsNoRows(err) {
		return LedgerEntry{}, false, nil
	}
	if err != nil {
		return LedgerEntry{}, false, fmt.Errorf("read ledger for %s: %w", entity, err)
	}
	return entry, true, nil
}

// LedgerEntries returns the full ledger ordered by entity name.
func (db *DB) LedgerEntries(ctx context.Context) ([]LedgerEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT entity_name, active_version, backup_version, updated_at
		FROM sync_metadata ORDER BY entity_name
	`)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var entry LedgerEntry
		var name string
		if err := rows.Scan(&name, &entry.ActiveVersion, &entry.BackupVersion, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entry.Entity = entities.Entity(name)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// nextGeneration derives the write target from the current active version.
// First ever flip writes generation 1 with no backup; after that the two
// generations alternate and the previously active one becomes the backup.
func nextGeneration(activeVersion int, found bool) (next, backup int) {
	if !found {
		return 1, 0
	}
	if activeVersion == 1 {
		return 2, 1
	}
	return 1, 2
}

// NextGeneration reads the ledger and returns the generation the next
// transform should write into, plus the active version it observed (0 when no
// row exists). The observed version is the CAS guard for CommitGeneration.
func (db *DB) NextGeneration(ctx context.Context, entity entities.Entity) (next, observedActive int, err error) {
	entry, found, err := db.LedgerEntry(ctx, entity)
	if err != nil {
		return 0, 0, err
	}
	next, _ = nextGeneration(entry.ActiveVersion, found)
	return next, entry.ActiveVersion, nil
}

// CommitGeneration records the flip to newActive in the ledger, guarded by the
// active version observed when the flip began. A mismatch means another run
// committed in between; the caller's transaction must roll back.
func (db *DB) CommitGeneration(ctx context.Context, entity entities.Entity, newActive, observedActive int) error {
	if !entity.IsValid() {
		return fmt.Errorf("invalid entity: %q", entity)
	}
	if newActive != 1 && newActive != 2 {
		return fmt.Errorf("invalid generation %d for %s", newActive, entity)
	}

	if observedActive == 0 {
		// First flip: the row must not exist yet. ON CONFLICT DO NOTHING
		// turns a lost race into zero affected rows instead of an error.
		tag, err := db.GetExecutor(ctx).Exec(ctx, `
			INSERT INTO sync_metadata (entity_name, active_version, backup_version, updated_at)
			VALUES ($1, $2, 0, now())
			ON CONFLICT (entity_name) DO NOTHING
		`, entity.String(), newActive)
		if err != nil {
			return fmt.Errorf("insert ledger row for %s: %w", entity, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s ledger row appeared concurrently", ErrLedgerConflict, entity)
		}
		return nil
	}

	tag, err := db.GetExecutor(ctx).Exec(ctx, `
		UPDATE sync_metadata
		SET active_version = $2, backup_version = $3, updated_at = now()
		WHERE entity_name = $1 AND active_version = $4
	`, entity.String(), newActive, observedActive, observedActive)
	if err != nil {
		return fmt.Errorf("update ledger row for %s: %w", entity, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s active version moved past %d", ErrLedgerConflict, entity, observedActive)
	}
	return nil
}
