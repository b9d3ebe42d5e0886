package temporal

import (
	"context"
	"time"

	"github.com/ed-andre/nowrepsync/pkg/utils"
	"go.uber.org/zap"

	"go.temporal.io/api/enums/v1"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	workflowservicepb "go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

type Client struct {
	TClient   client.Client
	Namespace string

	// Task Queues
	SyncQueue string // sync - the single queue for pipeline workflows and activities.

	// Workflow IDs
	// SyncPipelineWorkflowId is fixed so at most one pipeline run can be in
	// flight; a second start attempt is rejected by the server.
	SyncPipelineWorkflowId string
}

type Health struct {
	ConnectionOK bool                      `json:"connection_ok"`
	SyncQueue    []*taskqueuepb.PollerInfo `json:"sync_queue"`
}

func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", "nowrepsync")
	loggerWrapper := NewZapAdapter(logger)

	logger.Info("Connecting to Temporal", zap.String("host", host), zap.String("namespace", ns))
	tClient, err := Dial(ctx, host, ns, loggerWrapper)
	if err != nil {
		return nil, err
	}

	if _, err = tClient.CheckHealth(ctx, nil); err != nil {
		return nil, err
	}

	return &Client{
		TClient:   tClient,
		Namespace: ns,
		// for now this is just hardcoded, could be configurable if we need it
		SyncQueue:              "sync",
		SyncPipelineWorkflowId: "sync:pipeline",
	}, nil
}

// Dial connects to Temporal using the provided hostPort and namespace.
func Dial(ctx context.Context, hostPort, namespace string, logger log.Logger) (client.Client, error) {
	return client.DialContext(
		ctx,
		client.Options{
			HostPort:  hostPort,
			Namespace: namespace,
			Logger:    logger,
		},
	)
}

// GetSyncQueue returns the sync queue.
func (c *Client) GetSyncQueue() string { return c.SyncQueue }

// GetSyncPipelineWorkflowId returns the fixed pipeline workflow ID.
func (c *Client) GetSyncPipelineWorkflowId() string { return c.SyncPipelineWorkflowId }

// Health returns the health of the Temporal client.
func (c *Client) Health(ctx context.Context) (Health, error) {
	h := Health{ConnectionOK: true}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	svc := c.TClient.WorkflowService()
	if svc != nil {
		if rep, err := svc.DescribeTaskQueue(ctx, &workflowservicepb.DescribeTaskQueueRequest{
			Namespace:     c.Namespace,
			TaskQueue:     &taskqueuepb.TaskQueue{Name: c.SyncQueue},
			TaskQueueType: enums.TASK_QUEUE_TYPE_WORKFLOW,
		}); err == nil {
			h.SyncQueue = rep.GetPollers()
		}
	}
	return h, nil
}
