package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
)

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := map[string]any{"status": "ok"}

	if c.App.Store != nil {
		if err := c.App.Store.Ping(ctx); err != nil {
			health["status"] = "degraded"
			health["postgres"] = err.Error()
		} else {
			health["postgres"] = "ok"
		}
	}

	if c.App.RedisClient != nil {
		if err := c.App.RedisClient.Health(ctx); err != nil {
			health["redis"] = err.Error()
		} else {
			health["redis"] = "ok"
		}
	}

	if c.App.TemporalClient != nil {
		th, _ := c.App.TemporalClient.Health(ctx)
		health["temporal"] = th
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}
