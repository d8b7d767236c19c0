package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/masterlab/api/internal/model"
	"github.com/masterlab/api/internal/queue"
	"github.com/masterlab/api/internal/storage"
	"github.com/masterlab/api/internal/store"
)

// MasterService is the job tracker's public face: submit returns
// immediately with a Queued job, poll and result lookups are O(1) reads.
type MasterService struct {
	store store.JobStore
	queue queue.Queue
	files *storage.Storage
}

func NewMasterService(jobStore store.JobStore, q queue.Queue, files *storage.Storage) *MasterService {
	return &MasterService{store: jobStore, queue: q, files: files}
}

// SubmitUpload saves the uploaded track (and optional reference) under the
// job's id and submits the job. reference may be nil.
func (s *MasterService) SubmitUpload(ctx context.Context, trackName string, track io.Reader, refName string, reference io.Reader, params model.MasteringParams) (*model.MasterSubmitResponse, error) {
	jobID := uuid.New().String()

	inputPath, err := s.files.SaveUpload(jobID, "track", trackName, track)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	referencePath := ""
	if reference != nil {
		referencePath, err = s.files.SaveUpload(jobID, "reference", refName, reference)
		if err != nil {
			// A broken reference is not fatal; the chain degrades to the
			// parametric master.
			referencePath = ""
		}
	}

	return s.submit(ctx, jobID, inputPath, referencePath, params)
}

// Submit enqueues a mastering job for an already-validated input path.
func (s *MasterService) Submit(ctx context.Context, inputPath, referencePath string, params model.MasteringParams) (*model.MasterSubmitResponse, error) {
	return s.submit(ctx, uuid.New().String(), inputPath, referencePath, params)
}

func (s *MasterService) submit(ctx context.Context, jobID, inputPath, referencePath string, params model.MasteringParams) (*model.MasterSubmitResponse, error) {
	now := time.Now()
	job := &model.Job{
		ID:        jobID,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	payload := model.MasterJobPayload{
		InputPath:     inputPath,
		ReferencePath: referencePath,
		Params:        params.Clamp(),
	}
	if err := s.queue.Enqueue(ctx, jobID, payload); err != nil {
		// Leave no orphan record behind.
		_ = s.store.Delete(ctx, jobID)
		s.files.RemoveJobFiles(jobID)
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return &model.MasterSubmitResponse{JobID: jobID, Status: model.JobStatusQueued}, nil
}

// GetStatus returns a non-blocking snapshot of the job.
func (s *MasterService) GetStatus(ctx context.Context, jobID string) (*model.MasterStatusResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	resp := &model.MasterStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	if job.Error != nil {
		resp.Error = *job.Error
	}
	return resp, nil
}

// GetResult returns the completed job's output descriptor, ErrNotReady
// while the job is still in flight, or the failure message for Failed jobs.
func (s *MasterService) GetResult(ctx context.Context, jobID string) (*model.MasterResultResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch job.Status {
	case model.JobStatusCompleted:
		if job.Result == nil {
			return nil, errors.New("completed job has no result")
		}
		return &model.MasterResultResponse{
			JobID:        job.ID,
			FilePath:     job.Result.OutputPath,
			StrategyUsed: job.Result.StrategyUsed,
			MimeType:     job.Result.MimeType,
			Diagnostic:   job.Result.Diagnostic,
		}, nil
	case model.JobStatusFailed:
		msg := "job failed"
		if job.Error != nil {
			msg = *job.Error
		}
		return nil, fmt.Errorf("%w: %s", ErrJobFailed, msg)
	default:
		return nil, store.ErrNotReady
	}
}

// ErrJobFailed wraps the failure message of a Failed job.
var ErrJobFailed = errors.New("job failed")

// ResolveDownload returns the output file path and mime type for a
// completed job.
func (s *MasterService) ResolveDownload(ctx context.Context, jobID string) (string, string, error) {
	result, err := s.GetResult(ctx, jobID)
	if err != nil {
		return "", "", err
	}
	return result.FilePath, result.MimeType, nil
}
