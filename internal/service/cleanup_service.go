package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/masterlab/api/internal/model"
	"github.com/masterlab/api/internal/storage"
	"github.com/masterlab/api/internal/store"
)

// CleanupService purges jobs past the retention window, including their
// backing files. Jobs currently Processing are owned by a worker and never
// touched; everything else ages out, stale Queued records included.
type CleanupService struct {
	store     store.JobStore
	files     *storage.Storage
	retention time.Duration
	interval  time.Duration
}

func NewCleanupService(jobStore store.JobStore, files *storage.Storage, retention, interval time.Duration) *CleanupService {
	return &CleanupService{
		store:     jobStore,
		files:     files,
		retention: retention,
		interval:  interval,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *CleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass and returns the number of job records removed.
// File deletion is driven by job state; the mtime scan afterwards only
// collects true orphans, never files belonging to a surviving record.
func (s *CleanupService) Sweep(ctx context.Context) int {
	jobs, err := s.store.List(ctx)
	if err != nil {
		// without the job list the live set is unknown, so touch nothing
		log.Printf("Cleanup: failed to list jobs: %v", err)
		return 0
	}

	removed := 0
	live := make(map[string]struct{})
	cutoff := time.Now().Add(-s.retention)
	for _, job := range jobs {
		if job.Status == model.JobStatusProcessing {
			live[job.ID] = struct{}{}
			continue
		}
		if job.UpdatedAt.After(cutoff) {
			live[job.ID] = struct{}{}
			continue
		}
		if err := s.store.Delete(ctx, job.ID); err != nil {
			log.Printf("Cleanup: failed to delete job %s: %v", job.ID, err)
			live[job.ID] = struct{}{}
			continue
		}
		s.files.RemoveJobFiles(job.ID)
		log.Printf("Cleanup: purged job %s", job.ID)
		removed++
	}

	// Orphaned files (records already expired or never created) age out on
	// mtime alone.
	s.files.PurgeOlderThan(s.retention, func(name string) bool {
		for id := range live {
			if strings.HasPrefix(name, id+"_") || strings.HasPrefix(name, "mastered_"+id+".") {
				return true
			}
		}
		return false
	})
	return removed
}
