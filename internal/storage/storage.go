package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bdougie/photoreel/internal/models"
)

// Storage defines the interface for storing analysis results
type Storage interface {
	// AddResult adds a single analysis result
	AddResult(ctx context.Context, result models.AnalysisResult) error

	// Flush ensures all pending results are saved
	Flush() error
}

// SidecarStorage keeps every result in memory and rewrites the whole JSON
// sidecar after each one, so a crash loses at most the image in flight.
type SidecarStorage struct {
	mu      sync.Mutex
	path    string
	baseURL string
	results []models.AnalysisResult
	now     func() time.Time
}

// NewSidecarStorage creates a sidecar writer for path. Nothing is written
// until the first result arrives.
func NewSidecarStorage(path, baseURL string) *SidecarStorage {
	return &SidecarStorage{
		path:    path,
		baseURL: baseURL,
		now:     time.Now,
	}
}

// AddResult appends the result and rewrites the sidecar
func (s *SidecarStorage) AddResult(_ context.Context, result models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return s.flush()
}

// Flush rewrites the sidecar with everything accumulated so far
func (s *SidecarStorage) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return nil
	}
	return s.flush()
}

// Path returns the sidecar location
func (s *SidecarStorage) Path() string {
	return s.path
}

func (s *SidecarStorage) flush() error {
	rs := BuildResultSet(s.baseURL, s.results, s.now())
	return WriteResultSet(s.path, rs)
}

// BuildResultSet converts analysis results into the sidecar document,
// keeping their order.
func BuildResultSet(baseURL string, results []models.AnalysisResult, generatedAt time.Time) *models.ResultSet {
	images := make([]models.ImageRecord, 0, len(results))
	for _, r := range results {
		images = append(images, models.ImageRecord{
			FileName:    r.FileName,
			ImageURL:    baseURL + r.FileName,
			Description: r.Description,
			Caption:     r.Caption,
			Metadata:    r.Metadata,
			Error:       r.Error,
		})
	}
	return &models.ResultSet{
		GeneratedAt: generatedAt.Format(time.RFC3339Nano),
		BaseURL:     baseURL,
		Images:      images,
	}
}

// WriteResultSet replaces the file at path with rs. The document is written
// to a temporary file first and renamed into place.
func WriteResultSet(path string, rs *models.ResultSet) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rs); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory for results: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace results file: %w", err)
	}
	return nil
}

// LoadResultSet reads a sidecar written by WriteResultSet or by the older
// tool that used the insta_reel_caption and ngrok_base_url keys.
func LoadResultSet(path string) (*models.ResultSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results file: %w", err)
	}

	var rs models.ResultSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	return &rs, nil
}
