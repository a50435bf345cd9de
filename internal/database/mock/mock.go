// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/facematch"
)

// MockCollectionStore is an in-memory implementation of database.CollectionStore
type MockCollectionStore struct {
	mu         sync.RWMutex
	collection facematch.Collection
	saved      bool
	saves      int

	// Error injection
	SaveError error
	LoadError error
}

// NewMockCollectionStore creates a mock store. A nil collection means nothing was trained yet.
func NewMockCollectionStore(c facematch.Collection) *MockCollectionStore {
	return &MockCollectionStore{
		collection: c.Clone(),
		saved:      c != nil,
	}
}

// Save replaces the stored collection
func (m *MockCollectionStore) Save(ctx context.Context, c facematch.Collection) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection = c.Clone()
	m.saved = true
	m.saves++
	return nil
}

// Load returns a copy of the stored collection
func (m *MockCollectionStore) Load(ctx context.Context) (facematch.Collection, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.saved {
		return nil, database.ErrNotTrained
	}
	return m.collection.Clone(), nil
}

// Saves returns how many times Save succeeded
func (m *MockCollectionStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// MockTrainingRunRecorder is an in-memory implementation of database.TrainingRunRecorder
type MockTrainingRunRecorder struct {
	mu   sync.RWMutex
	runs []database.TrainingRun

	// Error injection
	RecordError error
	ListError   error
}

// NewMockTrainingRunRecorder creates a new mock recorder
func NewMockTrainingRunRecorder() *MockTrainingRunRecorder {
	return &MockTrainingRunRecorder{}
}

// RecordRun stores a run
func (m *MockTrainingRunRecorder) RecordRun(ctx context.Context, run *database.TrainingRun) error {
	if m.RecordError != nil {
		return m.RecordError
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

// ListRuns returns the stored runs, most recent first
func (m *MockTrainingRunRecorder) ListRuns(ctx context.Context, limit int) ([]database.TrainingRun, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.TrainingRun
	for i := len(m.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.runs[i])
	}
	return out, nil
}
