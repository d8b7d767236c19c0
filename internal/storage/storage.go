// Package storage owns the on-disk layout: one upload set and one output
// file set per job id, retained for a bounded window.
package storage

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/masterlab/api/internal/config"
)

// Storage resolves and manages job-keyed files under the configured
// directories.
type Storage struct {
	uploadDir string
	outputDir string
}

// New creates a Storage and ensures both directories exist.
func New(cfg *config.StorageConfig) (*Storage, error) {
	s := &Storage{uploadDir: cfg.UploadDir, outputDir: cfg.OutputDir}
	for _, dir := range []string{s.uploadDir, s.outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return s, nil
}

// SaveUpload streams an uploaded file under the upload dir, keyed by job id
// and role ("track" or "reference"). The original extension is kept for
// container sniffing.
func (s *Storage) SaveUpload(jobID, role, origName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(origName))
	if ext == "" {
		ext = ".bin"
	}
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s%s", jobID, role, ext))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing upload file: %w", err)
	}
	return path, nil
}

// OutputPath returns the processed file path for a job.
func (s *Storage) OutputPath(jobID, ext string) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("mastered_%s.%s", jobID, ext))
}

// WriteOutput persists the final bytes for a job and returns the path.
func (s *Storage) WriteOutput(jobID, ext string, data []byte) (string, error) {
	path := s.OutputPath(jobID, ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing output file: %w", err)
	}
	return path, nil
}

// RemoveJobFiles deletes every upload and output file keyed by the job id.
func (s *Storage) RemoveJobFiles(jobID string) {
	for _, pattern := range []string{
		filepath.Join(s.uploadDir, jobID+"_*"),
		filepath.Join(s.outputDir, "mastered_"+jobID+".*"),
	} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
				log.Printf("Failed removing %s: %v", m, err)
			}
		}
	}
}

// PurgeOlderThan removes any file in both directories whose mtime is older
// than maxAge. Files for which keep returns true are spared regardless of
// age; keep may be nil. Returns the number of files removed.
func (s *Storage) PurgeOlderThan(maxAge time.Duration, keep func(name string) bool) int {
	removed := 0
	now := time.Now()
	for _, dir := range []string{s.uploadDir, s.outputDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Printf("Failed listing %s: %v", dir, err)
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if keep != nil && keep(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) <= maxAge {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil {
				log.Printf("Failed removing %s: %v", path, err)
				continue
			}
			log.Printf("Removed old file: %s", path)
			removed++
		}
	}
	return removed
}
