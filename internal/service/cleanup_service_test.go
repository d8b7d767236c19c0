package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/masterlab/api/internal/config"
	"github.com/masterlab/api/internal/model"
	"github.com/masterlab/api/internal/storage"
	"github.com/masterlab/api/internal/store"
)

func TestSweep_PurgesExpiredJobs(t *testing.T) {
	ctx := context.Background()
	uploadDir := t.TempDir()
	files, err := storage.New(&config.StorageConfig{UploadDir: uploadDir, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	jobStore := store.NewMemoryStore()

	old := time.Now().Add(-48 * time.Hour)
	seed := []*model.Job{
		{ID: "expired", Status: model.JobStatusCompleted, CreatedAt: old, UpdatedAt: old},
		{ID: "stale-queued", Status: model.JobStatusQueued, CreatedAt: old, UpdatedAt: old},
		{ID: "stuck", Status: model.JobStatusProcessing, CreatedAt: old, UpdatedAt: old},
		{ID: "fresh", Status: model.JobStatusCompleted, CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}
	for _, job := range seed {
		if err := jobStore.Create(ctx, job); err != nil {
			t.Fatalf("seed %s: %v", job.ID, err)
		}
	}

	// aged files: two belong to purgeable jobs, one to the Processing job,
	// one is a true orphan
	for _, name := range []string{"expired_track.wav", "stale-queued_track.wav", "stuck_track.wav", "orphan_track.wav"} {
		path := filepath.Join(uploadDir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
	}

	cleanup := NewCleanupService(jobStore, files, 24*time.Hour, time.Minute)
	if removed := cleanup.Sweep(ctx); removed != 2 {
		t.Fatalf("expected two purged records, got %d", removed)
	}

	for _, id := range []string{"expired", "stale-queued"} {
		if _, err := jobStore.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("%s should be gone, got %v", id, err)
		}
	}
	if _, err := jobStore.Get(ctx, "stuck"); err != nil {
		t.Errorf("processing jobs must survive the sweep: %v", err)
	}
	if _, err := jobStore.Get(ctx, "fresh"); err != nil {
		t.Errorf("jobs inside retention must survive: %v", err)
	}

	for _, name := range []string{"expired_track.wav", "stale-queued_track.wav", "orphan_track.wav"} {
		if _, err := os.Stat(filepath.Join(uploadDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should have been purged", name)
		}
	}
	// the Processing job's file survives even though its mtime is ancient
	if _, err := os.Stat(filepath.Join(uploadDir, "stuck_track.wav")); err != nil {
		t.Errorf("a live job's file must never be mtime-purged: %v", err)
	}
}

func TestSweep_QueuedInsideRetentionSurvives(t *testing.T) {
	ctx := context.Background()
	files, err := storage.New(&config.StorageConfig{UploadDir: t.TempDir(), OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	jobStore := store.NewMemoryStore()
	now := time.Now()
	if err := jobStore.Create(ctx, &model.Job{ID: "waiting", Status: model.JobStatusQueued, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cleanup := NewCleanupService(jobStore, files, 24*time.Hour, time.Minute)
	if removed := cleanup.Sweep(ctx); removed != 0 {
		t.Fatalf("nothing should be purged, got %d", removed)
	}
	if _, err := jobStore.Get(ctx, "waiting"); err != nil {
		t.Errorf("a fresh queued job must survive: %v", err)
	}
}
