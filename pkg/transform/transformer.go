package transform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/pkg/db/pgstore"
	"github.com/ed-andre/nowrepsync/pkg/entities"
)

// maxSkipSamples bounds how many skipped-row reasons are kept per run.
const maxSkipSamples = 10

// Result describes one completed transform.
type Result struct {
	Entity     entities.Entity `json:"entity"`
	Generation int             `json:"generation"`
	SnapshotID int64           `json:"snapshotId"`
	Inserted   int             `json:"inserted"`
	Skipped    int             `json:"skipped"`
	Duration   time.Duration   `json:"duration"`
}

// Transformer reads the latest snapshot for an entity and flips its
// generation tables through the store.
type Transformer struct {
	Logger *zap.Logger
	Store  pgstore.Store
}

// New creates a Transformer.
func New(logger *zap.Logger, store pgstore.Store) *Transformer {
	return &Transformer{Logger: logger, Store: store}
}

// Transform runs the full per-entity transform: load the latest snapshot,
// normalize its envelope, validate rows and write the survivors into the
// inactive generation, then flip. Rows failing validation are skipped and
// counted; they never fail the batch. An unrecognized envelope shape or a
// missing snapshot fails the transform before any table is touched.
func (t *Transformer) Transform(ctx context.Context, entity entities.Entity) (Result, error) {
	start := time.Now()

	codec, err := codecFor(entity)
	if err != nil {
		return Result{}, err
	}

	snap, err := t.Store.LatestSnapshot(ctx, entity)
	if err != nil {
		return Result{}, err
	}

	rows, err := NormalizeEnvelope(entity, snap.Payload)
	if err != nil {
		return Result{}, fmt.Errorf("normalize %s snapshot %d: %w", entity, snap.ID, err)
	}

	result := Result{Entity: entity, SnapshotID: snap.ID}
	skipSamples := make([]string, 0, maxSkipSamples)

	gen, err := t.Store.SwapGeneration(ctx, entity, func(ctx context.Context, tx pgx.Tx, table string) error {
		batch := &pgx.Batch{}
		insertSQL := buildInsertSQL(table, codec.columns)

		for i, raw := range rows {
			args, parseErr := codec.parse(raw)
			if parseErr != nil {
				result.Skipped++
				if len(skipSamples) < maxSkipSamples {
					skipSamples = append(skipSamples, fmt.Sprintf("row %d: %v", i, parseErr))
				}
				continue
			}
			batch.Queue(insertSQL, args...)
			result.Inserted++
		}

		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return Result{}, err
	}

	result.Generation = gen
	result.Duration = time.Since(start)

	if result.Skipped > 0 {
		t.Logger.Warn("Transform skipped invalid rows",
			zap.String("entity", entity.String()),
			zap.Int("skipped", result.Skipped),
			zap.Strings("samples", skipSamples))
	}
	t.Logger.Info("Transform complete",
		zap.String("entity", entity.String()),
		zap.Int("generation", result.Generation),
		zap.Int64("snapshot_id", result.SnapshotID),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// buildInsertSQL renders the INSERT for one generation table. Table and
// column names come from the entity allow-list and the static codec table.
func buildInsertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}
