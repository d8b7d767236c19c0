package queue

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/masterlab/api/internal/model"
)

// ErrQueueFull is returned when the in-process queue cannot accept more
// work; submission must never block a request thread.
var ErrQueueFull = errors.New("job queue full")

type localJob struct {
	id      string
	payload model.MasterJobPayload
}

// LocalPool is the Redis-free queue backend: a buffered channel drained by a
// small fixed pool of goroutines, each running one job to completion.
type LocalPool struct {
	runner  Runner
	jobs    chan localJob
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// NewLocalPool creates a pool with the given queue depth.
func NewLocalPool(runner Runner, queueSize int) *LocalPool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &LocalPool{runner: runner, jobs: make(chan localJob, queueSize)}
}

// Start launches the worker goroutines.
func (p *LocalPool) Start(workers int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				if err := p.runner.Run(context.Background(), job.id, job.payload); err != nil {
					log.Printf("Job %s: worker error: %v", job.id, err)
				}
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *LocalPool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.jobs)
	p.wg.Wait()
}

// Enqueue queues a job without blocking; a full queue is an error surfaced
// to the submitter.
func (p *LocalPool) Enqueue(ctx context.Context, jobID string, payload model.MasterJobPayload) error {
	select {
	case p.jobs <- localJob{id: jobID, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}
