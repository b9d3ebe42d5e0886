package activity

import (
	"context"

	"github.com/go-jose/go-jose/v4/json"
	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/app/syncer/types"
	"github.com/ed-andre/nowrepsync/pkg/redis"
)

// PublishRunResult pushes the run summary to Redis: the Pub/Sub channel for
// live websocket relays and the capped history stream for the runs API. Both
// writes are best-effort; the pipeline result stands regardless.
func (ac *Context) PublishRunResult(ctx context.Context, in types.SyncRunResult) error {
	if ac.RedisClient == nil {
		return nil
	}

	payload, err := json.Marshal(in)
	if err != nil {
		ac.Logger.Warn("Failed to marshal run result", zap.Error(err))
		return nil
	}

	ac.RedisClient.Publish(ctx, redis.EventsChannel, payload)
	ac.RedisClient.XAdd(ctx, redis.RunsStream, map[string]interface{}{
		"result": string(payload),
	})

	return nil
}
