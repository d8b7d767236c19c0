package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/masterlab/api/internal/model"
)

// AsynqQueue enqueues mastering tasks on the Redis-backed asynq queue.
type AsynqQueue struct {
	client    *asynq.Client
	retention time.Duration
}

// NewAsynqQueue wraps an asynq client. retention bounds how long completed
// task metadata lives in Redis.
func NewAsynqQueue(client *asynq.Client, retention time.Duration) *AsynqQueue {
	return &AsynqQueue{client: client, retention: retention}
}

type taskPayload struct {
	JobID   string          `json:"jobId"`
	Payload json.RawMessage `json:"payload"`
}

func (q *AsynqQueue) Enqueue(ctx context.Context, jobID string, payload model.MasterJobPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	data, err := json.Marshal(taskPayload{JobID: jobID, Payload: body})
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	task := asynq.NewTask(TaskTypeMaster, data)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue("master"),
		asynq.MaxRetry(1),
		asynq.Retention(q.retention),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// DecodeTask unpacks an asynq task produced by Enqueue. Used by the worker's
// ProcessTask handler.
func DecodeTask(t *asynq.Task) (string, model.MasterJobPayload, error) {
	var tp taskPayload
	if err := json.Unmarshal(t.Payload(), &tp); err != nil {
		return "", model.MasterJobPayload{}, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	var payload model.MasterJobPayload
	if err := json.Unmarshal(tp.Payload, &payload); err != nil {
		return tp.JobID, model.MasterJobPayload{}, fmt.Errorf("failed to unmarshal master payload: %w", err)
	}
	return tp.JobID, payload, nil
}
