package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/app/api/types"
	synctypes "github.com/ed-andre/nowrepsync/app/syncer/types"
	syncworkflow "github.com/ed-andre/nowrepsync/app/syncer/workflow"
	"github.com/ed-andre/nowrepsync/pkg/db/pgstore"
	"github.com/ed-andre/nowrepsync/pkg/entities"
)

const countCacheTTL = 30 * time.Second

// HandleSyncRun starts a full pipeline run. The workflow ID is fixed, so a
// second start while a run is in flight is rejected with 409.
func (c *Controller) HandleSyncRun(w http.ResponseWriter, r *http.Request) {
	if c.App.TemporalClient == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "temporal unavailable"})
		return
	}

	in := synctypes.SyncPipelineInput{Trigger: "manual"}
	if r.Body != nil {
		// Body is optional; a bad body just keeps the defaults.
		_ = json.NewDecoder(r.Body).Decode(&in)
	}
	if in.Trigger == "" {
		in.Trigger = "manual"
	}

	run, err := c.App.TemporalClient.TClient.ExecuteWorkflow(r.Context(), client.StartWorkflowOptions{
		ID:                                       c.App.TemporalClient.GetSyncPipelineWorkflowId(),
		TaskQueue:                                c.App.TemporalClient.GetSyncQueue(),
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, syncworkflow.SyncPipelineWorkflowName, in)
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "a sync run is already in progress"})
			return
		}
		c.App.Logger.Error("Failed to start sync workflow", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "failed to start sync run"})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"workflowId": run.GetID(),
		"runId":      run.GetRunID(),
	})
}

// HandleSnapshot ingests a raw payload directly, bypassing the upstream
// fetch. Useful for replays and for backfilling from exported payloads.
func (c *Controller) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Entity    string          `json:"entity"`
		ModelName string          `json:"modelName"` // legacy alias for entity
		Payload   json.RawMessage `json:"payload"`
		KeepCount int             `json:"keepCount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad json"})
		return
	}

	name := in.Entity
	if name == "" {
		name = in.ModelName
	}
	entity, err := entities.FromString(name)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if len(in.Payload) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "payload is required"})
		return
	}

	rec, err := c.App.Store.StoreSnapshot(r.Context(), entity, []byte(in.Payload))
	if err != nil {
		// A rejected payload is the caller's fault; anything else is storage.
		if errors.Is(err, pgstore.ErrInvalidPayload) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		c.App.Logger.Error("Snapshot store failed",
			zap.String("entity", entity.String()),
			zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	keep := in.KeepCount
	if keep <= 0 {
		keep = 3
	}
	deleted, err := c.App.Store.PruneSnapshots(r.Context(), entity, keep)
	if err != nil {
		c.App.Logger.Warn("Snapshot prune failed",
			zap.String("entity", entity.String()),
			zap.Error(err))
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":      true,
		"record":       rec,
		"deletedCount": deleted,
		"keepCount":    keep,
	})
}

// HandleTransform transforms a single entity from its latest snapshot.
func (c *Controller) HandleTransform(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entity, err := entities.FromString(vars["entity"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	result, err := c.App.Transformer.Transform(r.Context(), entity)
	if err != nil {
		if errors.Is(err, pgstore.ErrNoSnapshot) {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		c.App.Logger.Error("Transform failed",
			zap.String("entity", entity.String()),
			zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	c.invalidateCount(entity)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": result})
}

// HandleEmpty flips every entity to an empty generation, in transform order.
func (c *Controller) HandleEmpty(w http.ResponseWriter, r *http.Request) {
	completed := make([]string, 0, entities.Count())
	for _, entity := range entities.TransformOrder() {
		if _, err := c.App.Store.EmptyGeneration(r.Context(), entity); err != nil {
			c.App.Logger.Error("Empty generation failed",
				zap.String("entity", entity.String()),
				zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":     err.Error(),
				"entity":    entity.String(),
				"completed": completed,
			})
			return
		}
		c.invalidateCount(entity)
		completed = append(completed, entity.String())
	}

	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "completed": completed})
}

// HandleSyncStatus reports the version ledger plus the row count behind each
// entity's current view. Counts are cached briefly; a COUNT(*) per entity on
// every dashboard poll adds up.
func (c *Controller) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	ledger, err := c.App.Store.LedgerEntries(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	counts := make(map[string]int64, entities.Count())
	for _, entity := range entities.All() {
		if cached, ok := c.App.CountCache.Load(entity.String()); ok && time.Since(cached.CachedAt) < countCacheTTL {
			counts[entity.String()] = cached.Count
			continue
		}
		count, countErr := c.App.Store.CountCurrent(r.Context(), entity)
		if countErr != nil {
			c.App.Logger.Warn("Count failed",
				zap.String("entity", entity.String()),
				zap.Error(countErr))
			continue
		}
		c.App.CountCache.Store(entity.String(), types.CachedCount{Count: count, CachedAt: time.Now()})
		counts[entity.String()] = count
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"ledger": ledger,
		"counts": counts,
	})
}

func (c *Controller) invalidateCount(entity entities.Entity) {
	c.App.CountCache.Delete(entity.String())
}
