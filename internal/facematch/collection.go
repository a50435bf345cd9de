package facematch

import (
	"errors"
	"fmt"
)

// LabeledEmbeddings holds every reference embedding observed for one label.
type LabeledEmbeddings struct {
	Label      string
	Embeddings []Embedding
}

// Dim returns the embedding length of the set, or 0 when empty.
func (l LabeledEmbeddings) Dim() int {
	if len(l.Embeddings) == 0 {
		return 0
	}
	return len(l.Embeddings[0])
}

// Collection is the trained reference set, one entry per label.
type Collection []LabeledEmbeddings

// Labels returns the labels in collection order.
func (c Collection) Labels() []string {
	labels := make([]string, len(c))
	for i := range c {
		labels[i] = c[i].Label
	}
	return labels
}

// EmbeddingCount returns the total number of reference embeddings.
func (c Collection) EmbeddingCount() int {
	n := 0
	for i := range c {
		n += len(c[i].Embeddings)
	}
	return n
}

// Find returns the set whose label matches name after normalization
// (case, diacritics and dashes are ignored).
func (c Collection) Find(name string) (LabeledEmbeddings, bool) {
	want := NormalizeLabel(name)
	for i := range c {
		if NormalizeLabel(c[i].Label) == want {
			return c[i], true
		}
	}
	return LabeledEmbeddings{}, false
}

// Dim returns the shared embedding dimension of the collection.
// An empty collection has dimension 0. A zero-length embedding is a mismatch.
func (c Collection) Dim() (int, error) {
	dim := -1
	for i := range c {
		for j, emb := range c[i].Embeddings {
			if len(emb) == 0 {
				return 0, fmt.Errorf("%w: label %q embedding %d is empty",
					ErrDimensionMismatch, c[i].Label, j)
			}
			if dim < 0 {
				dim = len(emb)
				continue
			}
			if len(emb) != dim {
				return 0, fmt.Errorf("%w: label %q embedding %d has %d values, expected %d",
					ErrDimensionMismatch, c[i].Label, j, len(emb), dim)
			}
		}
	}
	return max(dim, 0), nil
}

// Validate checks the structural invariants of a collection: non-empty labels,
// non-empty sets, non-empty embeddings and a shared dimension.
func (c Collection) Validate() error {
	for i := range c {
		if c[i].Label == "" {
			return fmt.Errorf("set %d: %w", i, errEmptyLabel)
		}
		if len(c[i].Embeddings) == 0 {
			return fmt.Errorf("label %q: %w", c[i].Label, errEmptySet)
		}
		for j, emb := range c[i].Embeddings {
			if len(emb) == 0 {
				return fmt.Errorf("label %q embedding %d: %w", c[i].Label, j, errEmptyEmbedding)
			}
		}
	}
	_, err := c.Dim()
	return err
}

// Clone returns a deep copy so callers cannot mutate a session's collection.
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	for i := range c {
		embs := make([]Embedding, len(c[i].Embeddings))
		for j, emb := range c[i].Embeddings {
			embs[j] = emb.Clone()
		}
		out[i] = LabeledEmbeddings{Label: c[i].Label, Embeddings: embs}
	}
	return out
}

var (
	errEmptyLabel     = errors.New("label is empty")
	errEmptySet       = errors.New("no embeddings")
	errEmptyEmbedding = errors.New("embedding is empty")
)
