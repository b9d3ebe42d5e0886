package types

import (
	"context"
	"net/http"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ed-andre/nowrepsync/pkg/db/pgstore"
	"github.com/ed-andre/nowrepsync/pkg/entities"
	"github.com/ed-andre/nowrepsync/pkg/redis"
	"github.com/ed-andre/nowrepsync/pkg/temporal"
	"github.com/ed-andre/nowrepsync/pkg/transform"
)

// Transformer flips one entity onto a freshly written generation.
type Transformer interface {
	Transform(ctx context.Context, entity entities.Entity) (transform.Result, error)
}

type App struct {
	// Pipeline storage
	Store pgstore.Store

	// Snapshot -> generation transform, for direct API-triggered transforms
	Transformer Transformer

	// Temporal Client
	TemporalClient *temporal.Client

	// Redis Client (for WebSocket real-time events and run history)
	RedisClient *redis.Client

	// Cron scheduler for periodic pipeline runs
	Cron *cron.Cron

	// Zap Logger
	Logger *zap.Logger

	// HTTP Server
	Server *http.Server

	// Per-entity row count cache (30s TTL to keep status requests cheap)
	CountCache *xsync.Map[string, CachedCount]
}

// User is an API login identity.
type User struct {
	Username string `json:"username"`
	Hash     []byte `json:"hash"`
	Role     string `json:"role"`
}

// CachedCount is one cached current-view row count.
type CachedCount struct {
	Count    int64
	CachedAt time.Time
}

// NewCountCache creates the count cache.
func NewCountCache() *xsync.Map[string, CachedCount] {
	return xsync.NewMap[string, CachedCount]()
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	if a.Cron != nil {
		a.Cron.Start()
	}

	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	if a.Cron != nil {
		cronCtx := a.Cron.Stop()
		<-cronCtx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)

	if a.RedisClient != nil {
		_ = a.RedisClient.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.TemporalClient != nil {
		a.TemporalClient.TClient.Close()
	}

	a.Logger.Info("さようなら!")
}
