package syncer

import (
	"context"
	"time"

	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/app/syncer/activity"
	"github.com/ed-andre/nowrepsync/app/syncer/workflow"
	"github.com/ed-andre/nowrepsync/pkg/db/pgstore"
	"github.com/ed-andre/nowrepsync/pkg/logging"
	"github.com/ed-andre/nowrepsync/pkg/redis"
	"github.com/ed-andre/nowrepsync/pkg/source"
	"github.com/ed-andre/nowrepsync/pkg/temporal"
	"github.com/ed-andre/nowrepsync/pkg/transform"
)

type App struct {
	Worker         worker.Worker
	TemporalClient *temporal.Client
	Store          *pgstore.DB
	Logger         *zap.Logger
}

// Start starts the worker and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	if err := a.Worker.Start(); err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}
	<-ctx.Done()
	a.Stop()
}

// Stop stops the worker.
func (a *App) Stop() {
	a.Worker.Stop()
	a.Store.Close()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	store, err := pgstore.New(ctx, logger, "syncer")
	if err != nil {
		logger.Fatal("Unable to initialize postgres store", zap.Error(err))
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	// Redis is optional: without it the pipeline still runs, it just stops
	// publishing live events and run history.
	redisClient, err := redis.NewClient(ctx, logger)
	if err != nil {
		logger.Warn("Redis unavailable, run events disabled", zap.Error(err))
		redisClient = nil
	}

	activityContext := &activity.Context{
		Logger:         logger,
		Store:          store,
		Source:         source.NewFromEnv(),
		Transformer:    transform.New(logger, store),
		RedisClient:    redisClient,
		TemporalClient: temporalClient,
	}
	workflowContext := workflow.Context{
		TemporalClient:  temporalClient,
		ActivityContext: activityContext,
	}

	// One queue, one workflow at a time. Activity parallelism only needs to
	// cover the per-entity fetch fan-out.
	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.GetSyncQueue(),
		worker.Options{
			MaxConcurrentWorkflowTaskPollers:       2,
			MaxConcurrentActivityTaskPollers:       4,
			MaxConcurrentWorkflowTaskExecutionSize: 10,
			MaxConcurrentActivityExecutionSize:     32,
			WorkerStopTimeout:                      1 * time.Minute,
		},
	)

	// Register the workflow
	wkr.RegisterWorkflowWithOptions(
		workflowContext.SyncPipelineWorkflow,
		temporalworkflow.RegisterOptions{
			Name: workflow.SyncPipelineWorkflowName,
		},
	)
	// Register all the activities
	wkr.RegisterActivity(activityContext.ValidateSource)
	wkr.RegisterActivity(activityContext.FetchEntity)
	wkr.RegisterActivity(activityContext.TransformEntity)
	wkr.RegisterActivity(activityContext.EmptyGenerations)
	wkr.RegisterActivity(activityContext.PublishRunResult)

	return &App{
		Worker:         wkr,
		TemporalClient: temporalClient,
		Store:          store,
		Logger:         logger,
	}
}
