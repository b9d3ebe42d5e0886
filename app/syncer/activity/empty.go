package activity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/app/syncer/types"
	"github.com/ed-andre/nowrepsync/pkg/entities"
)

// EmptyGenerations flips every entity to an empty generation so readers see
// zero rows instead of stale data. Entities flip sequentially in transform
// order. A mid-walk failure stops the walk but does not fail the activity:
// the completed flips are already committed, and a failed activity's output
// is discarded while a retry would flip those entities a second time, so the
// failure and the partial progress both ride in the output.
func (ac *Context) EmptyGenerations(ctx context.Context, in types.EmptyGenerationsInput) (types.EmptyGenerationsOutput, error) {
	start := time.Now()
	out := types.EmptyGenerationsOutput{Completed: make([]string, 0, entities.Count())}

	for _, entity := range entities.TransformOrder() {
		gen, err := ac.Store.EmptyGeneration(ctx, entity)
		if err != nil {
			out.Error = fmt.Sprintf("empty generation for %s: %v", entity, err)
			out.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
			ac.Logger.Error("Empty generation failed, stopping walk",
				zap.String("entity", entity.String()),
				zap.Int("completed", len(out.Completed)),
				zap.Error(err))
			return out, nil
		}
		out.Completed = append(out.Completed, entity.String())
		ac.Logger.Debug("Entity flipped to empty generation",
			zap.String("entity", entity.String()),
			zap.Int("generation", gen))
	}

	out.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0

	ac.Logger.Info("All entities flipped to empty generations",
		zap.Int("entities", len(out.Completed)),
		zap.Float64("durationMs", out.DurationMs))

	return out, nil
}
