package database

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-tagger/internal/facematch"
)

// ErrNotTrained is returned by Load when no collection has been saved yet.
var ErrNotTrained = errors.New("no trained collection")

// CollectionStore persists the trained collection. Save replaces whatever was
// stored before, Load returns labels in the order they were saved.
type CollectionStore interface {
	Save(ctx context.Context, c facematch.Collection) error
	Load(ctx context.Context) (facematch.Collection, error)
}

// TrainingRunRecorder keeps a history of training runs
type TrainingRunRecorder interface {
	// RecordRun stores a run, assigning ID and CreatedAt when unset
	RecordRun(ctx context.Context, run *TrainingRun) error
	// ListRuns returns the most recent runs first
	ListRuns(ctx context.Context, limit int) ([]TrainingRun, error)
}
