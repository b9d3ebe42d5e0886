package activity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/app/syncer/types"
	"github.com/ed-andre/nowrepsync/pkg/entities"
)

// TransformEntity rebuilds one entity's inactive generation from its latest
// snapshot and flips the current view. A failure here leaves the entity's
// previous generation active and untouched.
func (ac *Context) TransformEntity(ctx context.Context, in types.TransformEntityInput) (types.TransformEntityOutput, error) {
	start := time.Now()

	entity, err := entities.FromString(in.Entity)
	if err != nil {
		return types.TransformEntityOutput{}, fmt.Errorf("invalid entity: %w", err)
	}

	result, err := ac.Transformer.Transform(ctx, entity)
	if err != nil {
		return types.TransformEntityOutput{}, fmt.Errorf("transform %s: %w", entity, err)
	}

	out := types.TransformEntityOutput{
		Entity:     entity.String(),
		Generation: result.Generation,
		SnapshotID: result.SnapshotID,
		Inserted:   result.Inserted,
		Skipped:    result.Skipped,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}

	ac.Logger.Debug("Entity transform activity complete",
		zap.String("entity", entity.String()),
		zap.Int("generation", out.Generation),
		zap.Float64("durationMs", out.DurationMs))

	return out, nil
}
