package facematch

import "math"

// Embedding is a fixed-length face descriptor produced by the external embedder.
type Embedding []float32

// Clone returns an independent copy of the embedding.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// EuclideanDistance computes the L2 distance between two embeddings.
// Returns +Inf when the lengths differ.
func EuclideanDistance(a, b Embedding) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// MeanDistance returns the mean Euclidean distance from query to every reference.
func MeanDistance(query Embedding, refs []Embedding) float64 {
	if len(refs) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for _, ref := range refs {
		sum += EuclideanDistance(query, ref)
	}
	return sum / float64(len(refs))
}

// Detection is a single face found in a frame by the external detector.
type Detection struct {
	BBox      []float64 // [x1, y1, x2, y2] in pixels
	Embedding Embedding
	Score     float64
}
