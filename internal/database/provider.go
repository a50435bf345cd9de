package database

import (
	"context"
	"errors"
	"fmt"
)

var (
	postgresCollectionStore func() CollectionStore
	postgresRunRecorder     func() TrainingRunRecorder
	postgresInitialized     bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(store func() CollectionStore, runs func() TrainingRunRecorder) {
	postgresCollectionStore = store
	postgresRunRecorder = runs
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetCollectionStore returns the PostgreSQL store when the backend is registered,
// otherwise a JSON file store at filePath.
func GetCollectionStore(ctx context.Context, filePath string) (CollectionStore, error) {
	if postgresInitialized {
		if postgresCollectionStore == nil {
			return nil, errors.New("PostgreSQL collection store not registered")
		}
		return postgresCollectionStore(), nil
	}
	if filePath == "" {
		return nil, errors.New("no storage configured: set TRAINED_PATH or DATABASE_URL")
	}
	return NewFileStore(filePath), nil
}

// GetTrainingRunRecorder returns the run history from the PostgreSQL backend
func GetTrainingRunRecorder(ctx context.Context) (TrainingRunRecorder, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresRunRecorder == nil {
		return nil, fmt.Errorf("PostgreSQL training run recorder not registered")
	}
	return postgresRunRecorder(), nil
}
