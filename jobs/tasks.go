// Package jobs wires background processing: the Asynq worker and the
// authorization reconciliation tasks that repair drift between role
// assignment rows and remote policy facts.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuthzReconcile sweeps all role assignments and rewrites their
	// policy facts.
	TaskAuthzReconcile = "authz:reconcile"
	// TaskAuthzResync rewrites the policy facts of a single assignment pair,
	// enqueued when a synchronization fails after a local commit.
	TaskAuthzResync = "authz:resync"
)

// ResyncPayload identifies the assignment pair to repair.
type ResyncPayload struct {
	TripID string `json:"trip_id"`
	UserID string `json:"user_id"`
}

// NewReconcileTask constructs the full-sweep task.
func NewReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskAuthzReconcile, nil)
}

// NewResyncTask constructs a targeted resync task.
func NewResyncTask(payload ResyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthzResync, data), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueResync schedules a targeted reconciliation for one assignment pair.
// Satisfies the synchronizer's enqueuer contract.
func (c *Client) EnqueueResync(ctx context.Context, tripID, userID string) error {
	task, err := NewResyncTask(ResyncPayload{TripID: tripID, UserID: userID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
	return err
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}
