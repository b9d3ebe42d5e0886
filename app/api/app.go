package api

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/app/api/types"
	synctypes "github.com/ed-andre/nowrepsync/app/syncer/types"
	syncworkflow "github.com/ed-andre/nowrepsync/app/syncer/workflow"
	"github.com/ed-andre/nowrepsync/pkg/db/pgstore"
	"github.com/ed-andre/nowrepsync/pkg/logging"
	"github.com/ed-andre/nowrepsync/pkg/redis"
	"github.com/ed-andre/nowrepsync/pkg/temporal"
	"github.com/ed-andre/nowrepsync/pkg/transform"
	"github.com/ed-andre/nowrepsync/pkg/utils"
)

func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	store, err := pgstore.New(ctx, logger, "api")
	if err != nil {
		logger.Fatal("Unable to initialize postgres store", zap.Error(err))
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	// Initialize Redis client for real-time WebSocket events and run
	// history (optional)
	var redisClient *redis.Client
	if utils.Env("REDIS_ENABLED", "true") == "true" {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - WebSocket real-time events will be disabled",
				zap.Error(err))
			redisClient = nil
		}
	} else {
		logger.Info("Redis disabled - WebSocket real-time events will not be available")
	}

	app := &types.App{
		Store:          store,
		Transformer:    transform.New(logger, store),
		TemporalClient: temporalClient,
		RedisClient:    redisClient,
		Logger:         logger,
		CountCache:     types.NewCountCache(),
	}

	if err := setupScheduler(ctx, app); err != nil {
		logger.Fatal("Unable to set up sync scheduler", zap.Error(err))
	}

	return app
}

// setupScheduler wires the cron trigger that starts a pipeline run on
// SYNC_CRON_SPEC. The workflow ID is fixed, so an overlapping tick is simply
// rejected by the server and logged; no run ever doubles up.
func setupScheduler(ctx context.Context, app *types.App) error {
	spec := utils.Env("SYNC_CRON_SPEC", "0 */6 * * *")
	if spec == "off" {
		app.Logger.Info("Cron trigger disabled")
		return nil
	}

	app.Cron = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err := app.Cron.AddFunc(spec, func() {
		// keep each trigger bounded; the run itself continues on the worker
		rctx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()

		run, startErr := app.TemporalClient.TClient.ExecuteWorkflow(rctx, client.StartWorkflowOptions{
			ID:                                       app.TemporalClient.GetSyncPipelineWorkflowId(),
			TaskQueue:                                app.TemporalClient.GetSyncQueue(),
			WorkflowExecutionErrorWhenAlreadyStarted: true,
		}, syncworkflow.SyncPipelineWorkflowName, synctypes.SyncPipelineInput{Trigger: "cron"})
		if startErr != nil {
			var already *serviceerror.WorkflowExecutionAlreadyStarted
			if errors.As(startErr, &already) {
				app.Logger.Info("Cron tick skipped, sync run already in progress")
				return
			}
			app.Logger.Error("Cron trigger failed to start sync run", zap.Error(startErr))
			return
		}
		app.Logger.Info("Cron triggered sync run",
			zap.String("workflowId", run.GetID()),
			zap.String("runId", run.GetRunID()))
	})
	if err != nil {
		return err
	}

	app.Logger.Info("Sync scheduler configured", zap.String("cronSpec", spec))
	return nil
}
