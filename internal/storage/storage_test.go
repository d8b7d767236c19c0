package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/masterlab/api/internal/config"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(&config.StorageConfig{
		UploadDir: filepath.Join(t.TempDir(), "uploads"),
		OutputDir: filepath.Join(t.TempDir(), "processed"),
	})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	return s
}

func TestSaveUpload_KeepsExtension(t *testing.T) {
	s := newStorage(t)
	path, err := s.SaveUpload("job1", "track", "My Song.MP3", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(path, "job1_track.mp3") {
		t.Errorf("expected a job-keyed lowercase extension, got %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "payload" {
		t.Errorf("stored content wrong: %q, %v", data, err)
	}
}

func TestSaveUpload_NoExtensionFallsBack(t *testing.T) {
	s := newStorage(t)
	path, err := s.SaveUpload("job1", "track", "noext", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(path, ".bin") {
		t.Errorf("expected a .bin fallback, got %s", path)
	}
}

func TestWriteOutputAndRemoveJobFiles(t *testing.T) {
	s := newStorage(t)
	if _, err := s.SaveUpload("job1", "track", "song.wav", strings.NewReader("in")); err != nil {
		t.Fatalf("save: %v", err)
	}
	outPath, err := s.WriteOutput("job1", "wav", []byte("out"))
	if err != nil {
		t.Fatalf("write output: %v", err)
	}
	if outPath != s.OutputPath("job1", "wav") {
		t.Errorf("path mismatch: %s", outPath)
	}

	// files of another job must survive the removal
	otherPath, err := s.WriteOutput("job2", "wav", []byte("keep"))
	if err != nil {
		t.Fatalf("write output: %v", err)
	}

	s.RemoveJobFiles("job1")
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Error("job1 output should be gone")
	}
	if _, err := os.Stat(otherPath); err != nil {
		t.Errorf("job2 output should survive: %v", err)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	s := newStorage(t)
	oldPath, err := s.WriteOutput("old", "wav", []byte("x"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	freshPath, err := s.WriteOutput("fresh", "wav", []byte("y"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if removed := s.PurgeOlderThan(24*time.Hour, nil); removed != 1 {
		t.Fatalf("expected one purged file, got %d", removed)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Error("old file should be purged")
	}
	if _, err := os.Stat(freshPath); err != nil {
		t.Errorf("fresh file should survive: %v", err)
	}
}

func TestPurgeOlderThan_SparesKeptFiles(t *testing.T) {
	s := newStorage(t)
	keptPath, err := s.WriteOutput("live", "wav", []byte("x"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	gonePath, err := s.WriteOutput("dead", "wav", []byte("y"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	past := time.Now().Add(-48 * time.Hour)
	for _, p := range []string{keptPath, gonePath} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := s.PurgeOlderThan(24*time.Hour, func(name string) bool {
		return strings.HasPrefix(name, "mastered_live.")
	})
	if removed != 1 {
		t.Fatalf("expected one purged file, got %d", removed)
	}
	if _, err := os.Stat(keptPath); err != nil {
		t.Errorf("kept file must survive regardless of age: %v", err)
	}
	if _, err := os.Stat(gonePath); !os.IsNotExist(err) {
		t.Error("unkept old file should be purged")
	}
}
