package workflow

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ed-andre/nowrepsync/app/syncer/activity"
	"github.com/ed-andre/nowrepsync/app/syncer/types"
	"github.com/ed-andre/nowrepsync/pkg/entities"
	"github.com/ed-andre/nowrepsync/pkg/retry"
	temporalclient "github.com/ed-andre/nowrepsync/pkg/temporal"
)

// SyncPipelineWorkflowName is the registered name of the pipeline workflow.
const SyncPipelineWorkflowName = "SyncPipelineWorkflow"

// Context carries the dependencies workflow methods need.
type Context struct {
	TemporalClient  *temporalclient.Client
	ActivityContext *activity.Context
}

// SyncPipelineWorkflow runs one validate -> sync -> transform cycle.
//
// Ordering guarantees:
//   - No generation table is touched until every entity's fetch has stored a
//     snapshot. A failed fetch aborts the run with all current views intact,
//     and the result names every endpoint that failed, not just the first.
//   - Transforms run sequentially in dependency order and are best-effort: a
//     failed transform keeps that entity's previous generation and the walk
//     continues, so one bad payload cannot hold the rest of the data hostage.
//   - A source with no boards, or one the gate could not read, flips every
//     entity to an empty generation instead of syncing.
//
// The workflow always completes with a SyncRunResult; failures are recorded
// in it rather than failing the workflow, so the fixed workflow ID frees up
// for the next run either way.
func (wc *Context) SyncPipelineWorkflow(ctx workflow.Context, in types.SyncPipelineInput) (types.SyncRunResult, error) {
	result := types.SyncRunResult{
		Trigger:   in.Trigger,
		StartedAt: workflow.Now(ctx).UTC().Format(time.RFC3339),
	}

	// Fetches retry on the upstream's schedule: transient blips resolve in
	// seconds, anything longer should fail the run. The bounds are shared
	// with the connection-level retry helper so both layers move together.
	fetchCfg := retry.FetchConfig()
	fetchRetry := &temporal.RetryPolicy{
		InitialInterval:    fetchCfg.InitialDelay,
		BackoffCoefficient: fetchCfg.Multiplier,
		MaximumInterval:    fetchCfg.MaxDelay,
		MaximumAttempts:    int32(fetchCfg.MaxRetries),
	}
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         fetchRetry,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	finish := func(stage string, err error) (types.SyncRunResult, error) {
		result.Stage = stage
		result.Success = err == nil
		if err != nil {
			result.Error = err.Error()
		}
		result.FinishedAt = workflow.Now(ctx).UTC().Format(time.RFC3339)
		wc.publish(ctx, result)
		return result, nil
	}

	// 1. Validation gate: does the source have anything to sync? The gate
	// itself never fails; an error here is activity infrastructure.
	var validation types.ValidateSourceOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.ValidateSource, types.ValidateSourceInput{}).Get(ctx, &validation); err != nil {
		return finish(types.StageValidation, err)
	}
	result.Validation = validation

	// 2. Empty-data path: flip everything to empty generations and stop. The
	// activity reports a mid-walk failure in its output so the entities that
	// did flip are still named in the result.
	if !validation.HasData {
		var emptied types.EmptyGenerationsOutput
		err := workflow.ExecuteActivity(ctx, wc.ActivityContext.EmptyGenerations, types.EmptyGenerationsInput{}).Get(ctx, &emptied)
		result.Emptied = emptied.Completed
		if err == nil && emptied.Error != "" {
			err = errors.New(emptied.Error)
		}
		return finish(types.StageEmptyData, err)
	}

	// 3. Sync: fetch every entity in parallel. All snapshots must land before
	// any transform runs; any fetch failure aborts the run here, with every
	// failed endpoint recorded alongside the ones that succeeded.
	all := entities.All()
	fetchFutures := make([]workflow.Future, len(all))
	for i, entity := range all {
		fetchFutures[i] = workflow.ExecuteActivity(ctx, wc.ActivityContext.FetchEntity, types.FetchEntityInput{
			Entity:       entity.String(),
			SnapshotKeep: in.SnapshotKeep,
		})
	}
	result.Fetched = make([]types.FetchEntityOutput, 0, len(all))
	for i, f := range fetchFutures {
		var out types.FetchEntityOutput
		if err := f.Get(ctx, &out); err != nil {
			// Keep draining the remaining futures so their activities finish.
			result.FetchFailures = append(result.FetchFailures, types.EntityFailure{
				Entity: all[i].String(),
				Error:  err.Error(),
			})
			continue
		}
		result.Fetched = append(result.Fetched, out)
	}
	if len(result.FetchFailures) > 0 {
		return finish(types.StageSync, fmt.Errorf("%d of %d fetches failed", len(result.FetchFailures), len(all)))
	}

	// 4. Transform: sequential in dependency order, one attempt each. A
	// failing transform already had its fetch retried; re-running it against
	// the same snapshot would fail identically.
	transformCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	for _, entity := range entities.TransformOrder() {
		var out types.TransformEntityOutput
		err := workflow.ExecuteActivity(transformCtx, wc.ActivityContext.TransformEntity, types.TransformEntityInput{
			Entity: entity.String(),
		}).Get(transformCtx, &out)
		if err != nil {
			workflow.GetLogger(ctx).Warn("Transform failed, keeping previous generation",
				"entity", entity.String(),
				"error", err)
			result.Failures = append(result.Failures, types.EntityFailure{
				Entity: entity.String(),
				Error:  err.Error(),
			})
			continue
		}
		result.Transforms = append(result.Transforms, out)
	}

	if len(result.Failures) > 0 {
		result.Stage = types.StageTransform
		result.FinishedAt = workflow.Now(ctx).UTC().Format(time.RFC3339)
		wc.publish(ctx, result)
		return result, nil
	}

	return finish(types.StageComplete, nil)
}

// publish pushes the run result out through Redis, best-effort.
func (wc *Context) publish(ctx workflow.Context, result types.SyncRunResult) {
	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	if err := workflow.ExecuteActivity(publishCtx, wc.ActivityContext.PublishRunResult, result).Get(publishCtx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("Failed to publish run result", "error", err)
	}
}
