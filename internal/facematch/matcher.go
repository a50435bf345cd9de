package facematch

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
)

// UnknownLabel is reported for faces that are not close enough to any label.
const UnknownLabel = "unknown"

// MatcherConfig configures a Matcher.
type MatcherConfig struct {
	// Threshold is the maximum mean distance for a known match. Lower = stricter.
	Threshold float64
	// Dim is the embedding length queries will have. 0 takes it from the collection.
	Dim int
}

// MatchResult is the outcome of classifying one query embedding.
type MatchResult struct {
	Query    Embedding `json:"-"`
	Label    string    `json:"label"`
	Known    bool      `json:"known"`
	Distance float64   `json:"distance"` // minimum mean distance, also set for unknown faces
}

// String formats the result for logs, e.g. "alice (0.42)".
func (r MatchResult) String() string {
	return fmt.Sprintf("%s (%.2f)", r.Label, r.Distance)
}

// MarshalJSON writes an infinite distance (empty collection) as null.
func (r MatchResult) MarshalJSON() ([]byte, error) {
	var distance *float64
	if !math.IsInf(r.Distance, 0) && !math.IsNaN(r.Distance) {
		distance = &r.Distance
	}
	return json.Marshal(struct {
		Label    string   `json:"label"`
		Known    bool     `json:"known"`
		Distance *float64 `json:"distance"`
	}{r.Label, r.Known, distance})
}

// Matcher classifies query embeddings against a trained collection.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	collection Collection
	threshold  float64
	dim        int
}

// NewMatcher builds a matcher over a copy of the collection.
func NewMatcher(c Collection, cfg MatcherConfig) (*Matcher, error) {
	if math.IsNaN(cfg.Threshold) || math.IsInf(cfg.Threshold, 0) || cfg.Threshold < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, cfg.Threshold)
	}

	dim, err := c.Dim()
	if err != nil {
		return nil, err
	}
	if cfg.Dim > 0 && dim > 0 && cfg.Dim != dim {
		return nil, fmt.Errorf("%w: collection has %d values per embedding, expected %d",
			ErrDimensionMismatch, dim, cfg.Dim)
	}
	if dim == 0 {
		dim = cfg.Dim
	}

	return &Matcher{
		collection: c.Clone(),
		threshold:  cfg.Threshold,
		dim:        dim,
	}, nil
}

// Threshold returns the configured maximum distance.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Dim returns the expected query length, or 0 if unknown (empty collection, no configured dim).
func (m *Matcher) Dim() int {
	return m.dim
}

// Labels returns the labels the matcher can report.
func (m *Matcher) Labels() []string {
	return m.collection.Labels()
}

// Collection returns a copy of the collection the matcher was built from.
func (m *Matcher) Collection() Collection {
	return m.collection.Clone()
}

// CheckDim reports whether a query has the dimension the matcher expects.
func (m *Matcher) CheckDim(query Embedding) error {
	if m.dim > 0 && len(query) != m.dim {
		return fmt.Errorf("%w: query has %d values, expected %d", ErrDimensionMismatch, len(query), m.dim)
	}
	return nil
}

// Match returns the label with the smallest mean distance to the query.
// On exact ties the first label in collection order wins. When that distance
// exceeds the threshold the result is unknown but still carries the distance.
func (m *Matcher) Match(query Embedding) MatchResult {
	result := MatchResult{
		Query:    query,
		Label:    UnknownLabel,
		Distance: math.Inf(1),
	}
	if m.CheckDim(query) != nil {
		return result
	}

	best := -1
	for i := range m.collection {
		d := MeanDistance(query, m.collection[i].Embeddings)
		if d < result.Distance {
			result.Distance = d
			best = i
		}
	}

	if best >= 0 && result.Distance <= m.threshold {
		result.Label = m.collection[best].Label
		result.Known = true
	}
	return result
}

// MatchAll matches every query concurrently. Results keep the input order.
func (m *Matcher) MatchAll(queries []Embedding) []MatchResult {
	results := make([]MatchResult, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q Embedding) {
			defer wg.Done()
			results[i] = m.Match(q)
		}(i, q)
	}
	wg.Wait()

	return results
}
