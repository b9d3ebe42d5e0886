package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/pkg/entities"
)

// FillFunc populates the inactive generation table inside the flip
// transaction. It receives the resolved physical table name and must execute
// all writes through tx.
type FillFunc func(ctx context.Context, tx pgx.Tx, table string) error

// SwapGeneration performs one atomic generation flip for the entity:
// resolve the inactive generation from the ledger, clear it, run fill to
// populate it, commit the ledger with a compare-and-swap, and repoint the
// current view. Everything happens in a single transaction, so readers of the
// current view never observe a partially written generation, and a failing
// fill leaves the previously active generation untouched.
//
// It returns the generation number that became active.
func (db *DB) SwapGeneration(ctx context.Context, entity entities.Entity, fill FillFunc) (int, error) {
	if !entity.IsValid() {
		return 0, fmt.Errorf("invalid entity: %q", entity)
	}

	next, observedActive, err := db.NextGeneration(ctx, entity)
	if err != nil {
		return 0, err
	}

	table, err := entity.GenerationTable(next)
	if err != nil {
		return 0, err
	}

	err = db.BeginFunc(ctx, func(tx pgx.Tx) error {
		txCtx := db.WithTx(ctx, tx)

		if _, err := tx.Exec(txCtx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}

		if fill != nil {
			if err := fill(txCtx, tx, table); err != nil {
				return err
			}
		}

		if err := db.CommitGeneration(txCtx, entity, next, observedActive); err != nil {
			return err
		}

		stmts, err := recreateViewSQL(entity, next)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(txCtx, stmt); err != nil {
				return fmt.Errorf("repoint view %s: %w", entity.CurrentView(), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	db.Logger.Info("Generation flipped",
		zap.String("entity", entity.String()),
		zap.Int("active_version", next),
		zap.Int("previous_version", observedActive))

	return next, nil
}

// EmptyGeneration flips the entity to an empty generation. Used by the
// empty-data path so readers see zero rows instead of stale data.
func (db *DB) EmptyGeneration(ctx context.Context, entity entities.Entity) (int, error) {
	return db.SwapGeneration(ctx, entity, nil)
}
