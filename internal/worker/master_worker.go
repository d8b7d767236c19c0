package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/masterlab/api/internal/master"
	"github.com/masterlab/api/internal/model"
	"github.com/masterlab/api/internal/queue"
	"github.com/masterlab/api/internal/store"
	"github.com/masterlab/api/internal/websocket"
)

// MasterWorker drives one job through the fallback chain: claim, progress
// updates, terminal transition. One job's lifecycle is never touched by two
// workers; the store's atomic claim enforces it.
type MasterWorker struct {
	store        store.JobStore
	orchestrator *master.Orchestrator
	hub          *websocket.Hub
}

// NewMasterWorker creates a worker. hub may be nil (no subscribers to
// notify, e.g. in tests).
func NewMasterWorker(jobStore store.JobStore, orchestrator *master.Orchestrator, hub *websocket.Hub) *MasterWorker {
	return &MasterWorker{
		store:        jobStore,
		orchestrator: orchestrator,
		hub:          hub,
	}
}

// ProcessTask handles an asynq delivery.
func (w *MasterWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	jobID, payload, err := queue.DecodeTask(t)
	if err != nil {
		return err
	}
	return w.Run(ctx, jobID, payload)
}

// Run executes one job end to end. Satisfies queue.Runner for the local
// pool backend.
func (w *MasterWorker) Run(ctx context.Context, jobID string, payload model.MasterJobPayload) error {
	job, err := w.store.Claim(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotClaimable) {
			// duplicate delivery or a job another worker already owns
			log.Printf("Job %s: already claimed, skipping", jobID)
			return nil
		}
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("Job %s: record gone before processing", jobID)
			return nil
		}
		return fmt.Errorf("claiming job %s: %w", jobID, err)
	}

	log.Printf("Starting master job: %s", jobID)

	progress := func(stage string, percent int, step string) {
		job.Progress = percent
		job.CurrentStep = step
		job.UpdatedAt = time.Now()
		if err := w.store.Update(ctx, job); err != nil {
			log.Printf("Job %s: failed to update status: %v", jobID, err)
		}
		if w.hub != nil {
			w.hub.BroadcastProgress(jobID, percent, model.JobStatusProcessing, step)
		}
	}

	result, err := w.orchestrator.Run(ctx, jobID, payload, progress)
	if err != nil {
		w.failJob(ctx, job, err.Error())
		return err
	}

	w.completeJob(ctx, job, result)
	log.Printf("Master job %s completed (%s)", jobID, result.StrategyUsed)
	return nil
}

func (w *MasterWorker) completeJob(ctx context.Context, job *model.Job, result *model.MasteringResult) {
	now := time.Now()
	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.CurrentStep = ""
	job.Result = result
	job.CompletedAt = &now
	job.UpdatedAt = now

	if err := w.store.Update(ctx, job); err != nil {
		log.Printf("Job %s: failed to persist completion: %v", job.ID, err)
		return
	}
	if w.hub != nil {
		w.hub.BroadcastComplete(job.ID, result)
	}
}

func (w *MasterWorker) failJob(ctx context.Context, job *model.Job, errMsg string) {
	now := time.Now()
	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	job.CompletedAt = &now
	job.UpdatedAt = now

	if err := w.store.Update(ctx, job); err != nil {
		log.Printf("Job %s: failed to persist failure: %v", job.ID, err)
	}
	if w.hub != nil {
		w.hub.BroadcastError(job.ID, "MASTER_FAILED", errMsg)
	}
}
