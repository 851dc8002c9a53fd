package memory

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
)

// DiagnosisRepository in-process history log, newest record first.
// Grows without bound for the life of the process; use a database
// backend when history must survive restarts.
type DiagnosisRepository struct {
	mu      sync.RWMutex
	records []domain.Record // append order, oldest first
}

func NewDiagnosisRepository() *DiagnosisRepository {
	return &DiagnosisRepository{}
}

// Append makes rec the newest entry of the log
func (r *DiagnosisRepository) Append(_ context.Context, rec domain.Record) error {
	rec = rec.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// List returns a deep copy of the log, newest to oldest
func (r *DiagnosisRepository) List(_ context.Context) ([]domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(), nil
}

// Summarize aggregates the log under one read lock,
// so the summary matches a single snapshot.
func (r *DiagnosisRepository) Summarize(_ context.Context) (domain.AnalyticsSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view := make([]domain.Record, len(r.records))
	for i, rec := range r.records {
		view[len(r.records)-1-i] = rec
	}
	return domain.Summarize(view), nil
}

// Len number of records currently held
func (r *DiagnosisRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *DiagnosisRepository) snapshot() []domain.Record {
	out := make([]domain.Record, len(r.records))
	for i, rec := range r.records {
		out[len(r.records)-1-i] = rec.Clone()
	}
	return out
}
