// Package storage keeps finished and in-flight batch runs in memory so the
// transport can answer status queries after a batch endpoint returns.
package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"audioscribe/internal/model"
)

// Batch run statuses
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// BatchRecord is one stored batch run
type BatchRecord struct {
	ID         string
	Status     string // processing, completed, failed
	CreatedAt  time.Time
	Error      string
	Results    []model.TranscriptionResult
	Summary    model.BatchSummary
	ReportPath string
}

// Store is a mutex-guarded in-memory batch record store
type Store struct {
	mu      sync.Mutex
	batches map[string]*BatchRecord
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{batches: make(map[string]*BatchRecord)}
}

// Create registers a new batch run and returns its ID
func (s *Store) Create() string {
	id := uuid.NewString()

	s.mu.Lock()
	s.batches[id] = &BatchRecord{
		ID:        id,
		Status:    StatusProcessing,
		CreatedAt: time.Now(),
	}
	s.mu.Unlock()

	return id
}

// Complete stores the finished batch outcome
func (s *Store) Complete(id string, results []model.TranscriptionResult, summary model.BatchSummary, reportPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.batches[id]; ok {
		rec.Status = StatusCompleted
		rec.Results = results
		rec.Summary = summary
		rec.ReportPath = reportPath
	}
}

// Fail marks a batch run as failed with a message
func (s *Store) Fail(id string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.batches[id]; ok {
		rec.Status = StatusFailed
		rec.Error = errMsg
	}
}

// Get retrieves a batch record by ID
func (s *Store) Get(id string) (*BatchRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.batches[id]
	if !ok {
		return nil, false
	}
	// Return a copy to avoid race conditions. The results slice is copied
	// too, so callers never alias the stored backing array.
	recCopy := *rec
	if rec.Results != nil {
		recCopy.Results = make([]model.TranscriptionResult, len(rec.Results))
		copy(recCopy.Results, rec.Results)
	}
	return &recCopy, true
}
