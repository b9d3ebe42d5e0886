package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap/zaptest"

	"github.com/ed-andre/nowrepsync/app/syncer/activity"
	"github.com/ed-andre/nowrepsync/app/syncer/types"
	"github.com/ed-andre/nowrepsync/pkg/db/pgstore"
	"github.com/ed-andre/nowrepsync/pkg/entities"
	"github.com/ed-andre/nowrepsync/pkg/source"
	temporalclient "github.com/ed-andre/nowrepsync/pkg/temporal"
	"github.com/ed-andre/nowrepsync/pkg/transform"
)

type fakeStore struct {
	mu        sync.Mutex
	snapshots map[entities.Entity]json.RawMessage
	nextID    int64
	emptied   []entities.Entity
	emptyFail map[entities.Entity]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		snapshots: map[entities.Entity]json.RawMessage{},
		emptyFail: map[entities.Entity]error{},
	}
}

func (f *fakeStore) StoreSnapshot(_ context.Context, entity entities.Entity, payload json.RawMessage) (pgstore.SnapshotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.snapshots[entity] = payload
	return pgstore.SnapshotRecord{ID: f.nextID, CreatedAt: time.Now()}, nil
}

func (f *fakeStore) LatestSnapshot(_ context.Context, entity entities.Entity) (pgstore.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.snapshots[entity]
	if !ok {
		return pgstore.Snapshot{}, pgstore.ErrNoSnapshot
	}
	return pgstore.Snapshot{SnapshotRecord: pgstore.SnapshotRecord{ID: 1}, Payload: payload}, nil
}

func (f *fakeStore) PruneSnapshots(context.Context, entities.Entity, int) (int64, error) {
	return 0, nil
}

func (f *fakeStore) LedgerEntry(context.Context, entities.Entity) (pgstore.LedgerEntry, bool, error) {
	return pgstore.LedgerEntry{}, false, nil
}

func (f *fakeStore) LedgerEntries(context.Context) ([]pgstore.LedgerEntry, error) {
	return nil, nil
}

func (f *fakeStore) SwapGeneration(context.Context, entities.Entity, pgstore.FillFunc) (int, error) {
	return 1, nil
}

func (f *fakeStore) EmptyGeneration(_ context.Context, entity entities.Entity) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.emptyFail[entity]; ok {
		return 0, err
	}
	f.emptied = append(f.emptied, entity)
	return 1, nil
}

func (f *fakeStore) CountCurrent(context.Context, entities.Entity) (int64, error) { return 0, nil }
func (f *fakeStore) Ping(context.Context) error                                   { return nil }
func (f *fakeStore) Close()                                                       {}

type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[entities.Entity]json.RawMessage
	failing  map[entities.Entity]error
	calls    map[entities.Entity]int
}

func newFakeFetcher(boards string) *fakeFetcher {
	payloads := map[entities.Entity]json.RawMessage{}
	for _, entity := range entities.All() {
		payloads[entity] = json.RawMessage(`[]`)
	}
	payloads[entities.Boards] = json.RawMessage(boards)
	return &fakeFetcher{
		payloads: payloads,
		failing:  map[entities.Entity]error{},
		calls:    map[entities.Entity]int{},
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, entity entities.Entity) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[entity]++
	if err, ok := f.failing[entity]; ok {
		return nil, err
	}
	return f.payloads[entity], nil
}

type fakeTransformer struct {
	mu      sync.Mutex
	failing map[entities.Entity]error
	order   []entities.Entity
}

func newFakeTransformer() *fakeTransformer {
	return &fakeTransformer{failing: map[entities.Entity]error{}}
}

func (f *fakeTransformer) Transform(_ context.Context, entity entities.Entity) (transform.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failing[entity]; ok {
		return transform.Result{}, err
	}
	f.order = append(f.order, entity)
	return transform.Result{Entity: entity, Generation: 1, Inserted: 2}, nil
}

func newTestEnv(t *testing.T, store *fakeStore, fetcher *fakeFetcher, transformer *fakeTransformer) (*testsuite.TestWorkflowEnvironment, Context) {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	activityCtx := &activity.Context{
		Logger:      zaptest.NewLogger(t),
		Store:       store,
		Source:      fetcher,
		Transformer: transformer,
	}
	wfCtx := Context{
		TemporalClient:  &temporalclient.Client{SyncQueue: "sync", SyncPipelineWorkflowId: "sync:pipeline"},
		ActivityContext: activityCtx,
	}

	env.RegisterWorkflow(wfCtx.SyncPipelineWorkflow)
	env.RegisterActivity(activityCtx.ValidateSource)
	env.RegisterActivity(activityCtx.FetchEntity)
	env.RegisterActivity(activityCtx.TransformEntity)
	env.RegisterActivity(activityCtx.EmptyGenerations)
	env.RegisterActivity(activityCtx.PublishRunResult)

	return env, wfCtx
}

func TestSyncPipelineHappyPath(t *testing.T) {
	store := newFakeStore()
	fetcher := newFakeFetcher(`{"data":[{"id":"b1","title":"Main"}]}`)
	transformer := newFakeTransformer()

	env, wfCtx := newTestEnv(t, store, fetcher, transformer)
	env.ExecuteWorkflow(wfCtx.SyncPipelineWorkflow, types.SyncPipelineInput{Trigger: "manual"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result types.SyncRunResult
	require.NoError(t, env.GetWorkflowResult(&result))

	assert.True(t, result.Success)
	assert.Equal(t, types.StageComplete, result.Stage)
	assert.Equal(t, "manual", result.Trigger)
	assert.True(t, result.Validation.HasData)
	assert.Len(t, result.Fetched, entities.Count())
	assert.Len(t, result.Transforms, entities.Count())
	assert.Empty(t, result.Failures)

	// Transforms ran in dependency order.
	assert.Equal(t, entities.TransformOrder(), transformer.order)
}

func TestSyncPipelineEmptySourceFlipsEmptyGenerations(t *testing.T) {
	store := newFakeStore()
	fetcher := newFakeFetcher(`[]`)
	transformer := newFakeTransformer()

	env, wfCtx := newTestEnv(t, store, fetcher, transformer)
	env.ExecuteWorkflow(wfCtx.SyncPipelineWorkflow, types.SyncPipelineInput{Trigger: "cron"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result types.SyncRunResult
	require.NoError(t, env.GetWorkflowResult(&result))

	assert.True(t, result.Success)
	assert.Equal(t, types.StageEmptyData, result.Stage)
	assert.False(t, result.Validation.HasData)
	assert.Len(t, result.Emptied, entities.Count())
	assert.Equal(t, entities.TransformOrder(), store.emptied)

	// No entity snapshots stored, no transforms attempted.
	assert.Empty(t, result.Fetched)
	assert.Empty(t, transformer.order)
}

func TestSyncPipelineUnreachableSourceTakesEmptyPath(t *testing.T) {
	store := newFakeStore()
	fetcher := newFakeFetcher(`[]`)
	fetcher.failing[entities.Boards] = &source.NetworkError{Err: errors.New("connection refused")}
	transformer := newFakeTransformer()

	env, wfCtx := newTestEnv(t, store, fetcher, transformer)
	env.ExecuteWorkflow(wfCtx.SyncPipelineWorkflow, types.SyncPipelineInput{})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result types.SyncRunResult
	require.NoError(t, env.GetWorkflowResult(&result))

	// The gate cannot tell "no data" from "could not reach the source" and
	// reports both the same way: no activity error, HasData=false with the
	// reason, and the run routed down the empty-data path.
	assert.True(t, result.Success)
	assert.Equal(t, types.StageEmptyData, result.Stage)
	assert.False(t, result.Validation.HasData)
	assert.Contains(t, result.Validation.Message, "boards fetch failed")
	assert.Equal(t, entities.TransformOrder(), store.emptied)

	// The gate reported instead of failing, so it was not retried.
	assert.Equal(t, 1, fetcher.calls[entities.Boards])
	assert.Empty(t, transformer.order)
}

func TestSyncPipelineEmptyPathReportsPartialProgress(t *testing.T) {
	store := newFakeStore()
	store.emptyFail[entities.Boards] = errors.New("disk full")
	fetcher := newFakeFetcher(`[]`)
	transformer := newFakeTransformer()

	env, wfCtx := newTestEnv(t, store, fetcher, transformer)
	env.ExecuteWorkflow(wfCtx.SyncPipelineWorkflow, types.SyncPipelineInput{})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result types.SyncRunResult
	require.NoError(t, env.GetWorkflowResult(&result))

	assert.False(t, result.Success)
	assert.Equal(t, types.StageEmptyData, result.Stage)
	assert.Contains(t, result.Error, "boards")

	// Entities flipped before the failure are still named in the result.
	// Boards sits fourth in the transform order, so exactly three completed.
	want := []string{
		entities.Talents.String(),
		entities.TalentsMeasurements.String(),
		entities.TalentsPortfolios.String(),
	}
	assert.Equal(t, want, result.Emptied)

	// The activity completed with its partial output, so the committed
	// flips were not re-run by a retry.
	assert.Equal(t, entities.TransformOrder()[:3], store.emptied)
}

func TestSyncPipelineFetchFailureAbortsBeforeTransforms(t *testing.T) {
	store := newFakeStore()
	fetcher := newFakeFetcher(`[{"id":"b1","title":"Main"}]`)
	fetcher.failing[entities.Talents] = errors.New("talents exploded")
	fetcher.failing[entities.MediaTags] = errors.New("mediatags exploded")
	transformer := newFakeTransformer()

	env, wfCtx := newTestEnv(t, store, fetcher, transformer)
	env.ExecuteWorkflow(wfCtx.SyncPipelineWorkflow, types.SyncPipelineInput{})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result types.SyncRunResult
	require.NoError(t, env.GetWorkflowResult(&result))

	assert.False(t, result.Success)
	assert.Equal(t, types.StageSync, result.Stage)
	assert.Contains(t, result.Error, "2 of 9 fetches failed")

	// Every failed endpoint is named with its own error, not just the first.
	require.Len(t, result.FetchFailures, 2)
	failures := map[string]string{}
	for _, f := range result.FetchFailures {
		failures[f.Entity] = f.Error
	}
	assert.Contains(t, failures[entities.Talents.String()], "talents exploded")
	assert.Contains(t, failures[entities.MediaTags.String()], "mediatags exploded")

	// The successful fetches are reported alongside the failures.
	assert.Len(t, result.Fetched, entities.Count()-2)

	// Transform stage never ran: current views were never at risk.
	assert.Empty(t, transformer.order)
	assert.Empty(t, result.Transforms)

	// The failing fetch was retried by the activity retry policy.
	assert.GreaterOrEqual(t, fetcher.calls[entities.Talents], 3)
}

func TestSyncPipelineTransformFailureIsBestEffort(t *testing.T) {
	store := newFakeStore()
	fetcher := newFakeFetcher(`[{"id":"b1","title":"Main"}]`)
	transformer := newFakeTransformer()
	transformer.failing[entities.BoardsTalents] = errors.New("bad payload shape")

	env, wfCtx := newTestEnv(t, store, fetcher, transformer)
	env.ExecuteWorkflow(wfCtx.SyncPipelineWorkflow, types.SyncPipelineInput{})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result types.SyncRunResult
	require.NoError(t, env.GetWorkflowResult(&result))

	assert.False(t, result.Success)
	assert.Equal(t, types.StageTransform, result.Stage)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, entities.BoardsTalents.String(), result.Failures[0].Entity)
	assert.Contains(t, result.Failures[0].Error, "bad payload shape")

	// All other entities still transformed, in order, past the failure.
	assert.Len(t, result.Transforms, entities.Count()-1)
	want := make([]entities.Entity, 0, entities.Count()-1)
	for _, entity := range entities.TransformOrder() {
		if entity != entities.BoardsTalents {
			want = append(want, entity)
		}
	}
	assert.Equal(t, want, transformer.order)
}
