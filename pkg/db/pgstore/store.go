// Package pgstore owns the pipeline's durable state: the append-only raw
// snapshot tables, the per-entity version ledger, the double-buffered
// generation tables and the read-facing current views.
//
// Consistency model: each entity flips generations in its own transaction
// (clear -> fill -> ledger CAS -> view recreate). There is no cross-entity
// transaction; a crash between two entities' flips leaves them on different
// generations, which is safe because every read path goes through that
// entity's own current view.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/pkg/db/postgres"
	"github.com/ed-andre/nowrepsync/pkg/entities"
)

// DB wraps the shared postgres client with the sync pipeline's storage
// operations. It implements Store.
type DB struct {
	postgres.Client
}

// New connects to PostgreSQL and ensures the pipeline schema exists.
func New(ctx context.Context, logger *zap.Logger, component string) (*DB, error) {
	client, err := postgres.New(ctx, logger, postgres.GetPoolConfigForComponent(component))
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client}
	if err := db.InitializeDB(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// InitializeDB ensures all per-entity tables and the ledger exist. The
// per-entity DDL statements are independent, so they run on a bounded worker
// pool instead of sequentially; the ledger table is created first because
// nothing else depends on table creation order.
func (db *DB) InitializeDB(ctx context.Context) error {
	initStart := time.Now()

	if err := db.Exec(ctx, createLedgerTableSQL()); err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}

	pool := pond.NewPool(8)
	defer pool.StopAndWait()
	group := pool.NewGroup()

	for _, entity := range entities.All() {
		group.SubmitErr(func() error {
			return db.initEntity(ctx, entity)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	db.Logger.Info("Sync schema initialization complete",
		zap.Int("entities", entities.Count()),
		zap.Duration("duration", time.Since(initStart)))

	return nil
}

// initEntity creates the snapshot table and both generation tables for one
// entity. Current views are not created here; they appear on the first flip.
func (db *DB) initEntity(ctx context.Context, entity entities.Entity) error {
	if err := db.Exec(ctx, createSnapshotTableSQL(entity)); err != nil {
		return fmt.Errorf("create snapshot table for %s: %w", entity, err)
	}
	for gen := 1; gen <= 2; gen++ {
		stmt, err := createGenerationTableSQL(entity, gen)
		if err != nil {
			return err
		}
		if err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create generation table %s_v%d: %w", entity, gen, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// CountCurrent returns the number of rows visible through the entity's
// current view, or zero when the view does not exist yet.
func (db *DB) CountCurrent(ctx context.Context, entity entities.Entity) (int64, error) {
	if !entity.IsValid() {
		return 0, fmt.Errorf("invalid entity: %q", entity)
	}

	exists, err := db.viewExists(ctx, entity)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", entity.CurrentView())
	if err := db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", entity.CurrentView(), err)
	}
	return count, nil
}

func (db *DB) viewExists(ctx context.Context, entity entities.Entity) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.views
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, entity.CurrentView()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check view %s: %w", entity.CurrentView(), err)
	}
	return exists, nil
}
