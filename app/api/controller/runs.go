package controller

import (
	"net/http"
	"strconv"

	"github.com/go-jose/go-jose/v4/json"
	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/pkg/redis"
)

// HandleRuns returns the most recent pipeline run results, newest first,
// read from the capped Redis history stream.
func (c *Controller) HandleRuns(w http.ResponseWriter, r *http.Request) {
	if c.App.RedisClient == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "run history not available (Redis disabled)"})
		return
	}

	limit := int64(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	messages, err := c.App.RedisClient.XRevRange(r.Context(), redis.RunsStream, limit)
	if err != nil {
		c.App.Logger.Error("Failed to read run history", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "failed to read run history"})
		return
	}

	runs := make([]json.RawMessage, 0, len(messages))
	for _, msg := range messages {
		raw, ok := msg.Values["result"].(string)
		if !ok {
			continue
		}
		runs = append(runs, json.RawMessage(raw))
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}
