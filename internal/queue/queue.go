// Package queue feeds submitted jobs to workers. Two backends: asynq over
// Redis, and an in-process pool for single-node deployments without Redis.
package queue

import (
	"context"

	"github.com/masterlab/api/internal/model"
)

// TaskTypeMaster is the asynq task type for mastering jobs.
const TaskTypeMaster = "master:process"

// Queue hands a job to a worker without blocking the caller.
type Queue interface {
	Enqueue(ctx context.Context, jobID string, payload model.MasterJobPayload) error
}

// Runner executes one job's full lifecycle. Implemented by the master
// worker.
type Runner interface {
	Run(ctx context.Context, jobID string, payload model.MasterJobPayload) error
}
