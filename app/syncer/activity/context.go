package activity

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/pkg/db/pgstore"
	"github.com/ed-andre/nowrepsync/pkg/entities"
	"github.com/ed-andre/nowrepsync/pkg/redis"
	temporalclient "github.com/ed-andre/nowrepsync/pkg/temporal"
	"github.com/ed-andre/nowrepsync/pkg/transform"
)

// DefaultSnapshotKeep is how many raw snapshots each entity retains after a
// fetch when the run does not override it.
const DefaultSnapshotKeep = 3

// Fetcher pulls one entity's raw payload from the upstream API.
type Fetcher interface {
	Fetch(ctx context.Context, entity entities.Entity) (json.RawMessage, error)
}

// Transformer flips one entity onto a freshly written generation.
type Transformer interface {
	Transform(ctx context.Context, entity entities.Entity) (transform.Result, error)
}

type Context struct {
	Logger *zap.Logger
	// Pipeline state
	Store pgstore.Store
	// Upstream portfolio API
	Source Fetcher
	// Snapshot -> generation transform
	Transformer Transformer
	// For publishing real-time events; may be nil when Redis is unavailable
	RedisClient *redis.Client
	// For workflow health/introspection
	TemporalClient *temporalclient.Client
}

// snapshotKeep resolves the retention count for a fetch.
func snapshotKeep(requested int) int {
	if requested > 0 {
		return requested
	}
	return DefaultSnapshotKeep
}
