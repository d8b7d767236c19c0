// Package store persists job records. Two backings exist: an in-process
// map for single-node deployments and tests, and Redis for deployments that
// already run the asynq queue.
package store

import (
	"context"
	"errors"

	"github.com/masterlab/api/internal/model"
)

var (
	// ErrNotFound: no record for the job id (never existed or purged).
	ErrNotFound = errors.New("job not found")
	// ErrNotReady: the job exists but has not reached a terminal state.
	ErrNotReady = errors.New("job not ready")
	// ErrNotClaimable: the Queued -> Processing transition was already taken.
	ErrNotClaimable = errors.New("job not claimable")
	// ErrTerminal: attempted mutation of a Completed/Failed record.
	ErrTerminal = errors.New("job already terminal")
)

// JobStore is the job tracker's persistence contract. A job is written by
// exactly one worker but read concurrently by many pollers; implementations
// must not serialize unrelated jobs behind one lock.
type JobStore interface {
	// Create persists a new Queued record.
	Create(ctx context.Context, job *model.Job) error
	// Get returns a snapshot of the record.
	Get(ctx context.Context, id string) (*model.Job, error)
	// Update overwrites a non-terminal record. Updating a terminal record
	// returns ErrTerminal.
	Update(ctx context.Context, job *model.Job) error
	// Claim atomically moves Queued -> Processing and returns the claimed
	// record. A second claim returns ErrNotClaimable.
	Claim(ctx context.Context, id string) (*model.Job, error)
	// List returns snapshots of all live records (used by the cleanup
	// sweeper).
	List(ctx context.Context) ([]*model.Job, error)
	// Delete removes the record.
	Delete(ctx context.Context, id string) error
}
