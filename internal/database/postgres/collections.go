package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/pgvector/pgvector-go"
)

// CollectionRepository stores the trained collection in PostgreSQL with pgvector.
type CollectionRepository struct {
	pool *Pool
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(pool *Pool) *CollectionRepository {
	return &CollectionRepository{pool: pool}
}

// Save replaces the stored collection in a single transaction.
func (r *CollectionRepository) Save(ctx context.Context, c facematch.Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// reference_embeddings rows go with their labels (ON DELETE CASCADE)
	if _, err := tx.ExecContext(ctx, `DELETE FROM labels`); err != nil {
		return fmt.Errorf("clear labels: %w", err)
	}

	for pos, set := range c {
		var labelID int
		err := tx.QueryRowContext(ctx,
			`INSERT INTO labels (name, position) VALUES ($1, $2) RETURNING id`,
			set.Label, pos,
		).Scan(&labelID)
		if err != nil {
			return fmt.Errorf("insert label %s: %w", set.Label, err)
		}

		for i, emb := range set.Embeddings {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO reference_embeddings (label_id, position, embedding)
				VALUES ($1, $2, $3::vector)
			`, labelID, i, pgvector.NewVector(emb))
			if err != nil {
				return fmt.Errorf("insert embedding %d of %s: %w", i, set.Label, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit collection: %w", err)
	}
	return nil
}

// Load returns the stored collection in label order.
func (r *CollectionRepository) Load(ctx context.Context) (facematch.Collection, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT l.name, e.embedding
		FROM labels l
		JOIN reference_embeddings e ON e.label_id = l.id
		ORDER BY l.position, e.position
	`)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	defer rows.Close()

	var c facematch.Collection
	for rows.Next() {
		var label string
		var vec pgvector.Vector
		if err := rows.Scan(&label, &vec); err != nil {
			return nil, fmt.Errorf("scan reference embedding: %w", err)
		}
		if n := len(c); n == 0 || c[n-1].Label != label {
			c = append(c, facematch.LabeledEmbeddings{Label: label})
		}
		last := &c[len(c)-1]
		last.Embeddings = append(last.Embeddings, facematch.Embedding(vec.Slice()))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection: %w", err)
	}

	if len(c) == 0 {
		return nil, database.ErrNotTrained
	}
	return c, nil
}

// Count returns the number of labels and reference embeddings stored.
func (r *CollectionRepository) Count(ctx context.Context) (labels, embeddings int, err error) {
	err = r.pool.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM labels), (SELECT COUNT(*) FROM reference_embeddings)
	`).Scan(&labels, &embeddings)
	if err != nil {
		return 0, 0, fmt.Errorf("count collection: %w", err)
	}
	return labels, embeddings, nil
}

// Nearest returns the k stored reference embeddings closest to query using
// the pgvector L2 operator. References of another dimension are ignored.
func (r *CollectionRepository) Nearest(ctx context.Context, query facematch.Embedding, k int) ([]database.Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT l.name, e.position, e.embedding <-> $1::vector AS distance
		FROM reference_embeddings e
		JOIN labels l ON l.id = e.label_id
		WHERE vector_dims(e.embedding) = $2
		ORDER BY distance, l.position, e.position
		LIMIT $3
	`, pgvector.NewVector(query), len(query), k)
	if err != nil {
		return nil, fmt.Errorf("query nearest references: %w", err)
	}
	defer rows.Close()

	var out []database.Neighbor
	for rows.Next() {
		var n database.Neighbor
		if err := rows.Scan(&n.Label, &n.Position, &n.Distance); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}
	return out, nil
}
