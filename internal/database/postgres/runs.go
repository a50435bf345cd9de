package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/lib/pq"
)

// TrainingRunRepository stores training run history.
type TrainingRunRepository struct {
	pool *Pool
}

// NewTrainingRunRepository creates a new training run repository
func NewTrainingRunRepository(pool *Pool) *TrainingRunRepository {
	return &TrainingRunRepository{pool: pool}
}

// RecordRun inserts a run, assigning ID and CreatedAt when unset.
func (r *TrainingRunRepository) RecordRun(ctx context.Context, run *database.TrainingRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	failed := run.FailedLabels
	if failed == nil {
		failed = []string{}
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO training_runs (id, root, labels, embeddings, images, skipped, failed_labels, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.ID, run.Root, run.Labels, run.Embeddings, run.Images, run.Skipped,
		pq.Array(failed), run.Duration.Milliseconds(), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert training run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of 0 returns all runs.
func (r *TrainingRunRepository) ListRuns(ctx context.Context, limit int) ([]database.TrainingRun, error) {
	query := `
		SELECT id, root, labels, embeddings, images, skipped, failed_labels, duration_ms, created_at
		FROM training_runs
		ORDER BY created_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query training runs: %w", err)
	}
	defer rows.Close()

	var runs []database.TrainingRun
	for rows.Next() {
		var run database.TrainingRun
		var durationMs int64
		if err := rows.Scan(&run.ID, &run.Root, &run.Labels, &run.Embeddings, &run.Images,
			&run.Skipped, pq.Array(&run.FailedLabels), &durationMs, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan training run: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training runs: %w", err)
	}
	return runs, nil
}
