package activity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/app/syncer/types"
	"github.com/ed-andre/nowrepsync/pkg/entities"
	"github.com/ed-andre/nowrepsync/pkg/transform"
)

// ValidateSource checks whether the upstream has data worth syncing. Boards
// is the anchor: an agency with zero boards has nothing downstream either.
//
// The gate never fails. When the fetch or the envelope decode goes wrong it
// cannot tell whether the source has data, and that is reported the same way
// as an empty source: HasData=false with the reason in Message. Both route
// the run to the empty-data path.
func (ac *Context) ValidateSource(ctx context.Context, in types.ValidateSourceInput) (types.ValidateSourceOutput, error) {
	start := time.Now()
	out := types.ValidateSourceOutput{}

	payload, err := ac.Source.Fetch(ctx, entities.Boards)
	if err != nil {
		out.Message = fmt.Sprintf("boards fetch failed: %v", err)
	} else if rows, shapeErr := transform.NormalizeEnvelope(entities.Boards, payload); shapeErr != nil {
		out.Message = fmt.Sprintf("boards payload unreadable: %v", shapeErr)
	} else {
		out.HasData = len(rows) > 0
		out.Count = len(rows)
		if !out.HasData {
			out.Message = "source returned no boards"
		}
	}
	out.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0

	if out.HasData {
		ac.Logger.Info("Source validation complete",
			zap.Int("count", out.Count),
			zap.Float64("durationMs", out.DurationMs))
	} else {
		ac.Logger.Warn("Source validation found no usable data",
			zap.String("message", out.Message),
			zap.Float64("durationMs", out.DurationMs))
	}

	return out, nil
}
