package database

import (
	"time"

	"github.com/google/uuid"
)

// StoredReference is one reference embedding of a label as persisted by a backend.
type StoredReference struct {
	ID        int64
	Label     string
	Position  int // order of the embedding within its label
	Embedding []float32
}

// TrainingRun records the outcome of one training run.
type TrainingRun struct {
	ID           uuid.UUID
	Root         string
	Labels       int
	Embeddings   int
	Images       int
	Skipped      int
	FailedLabels []string
	Duration     time.Duration
	CreatedAt    time.Time
}
