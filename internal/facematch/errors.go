// Package facematch classifies face embeddings against a labeled reference
// collection and holds the types shared by training, storage and recognition.
package facematch

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFaceDetected is returned by an embedder when an image holds no usable face.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrMultipleFaces is returned when a training image holds more than one face.
	// It wraps ErrNoFaceDetected so callers can treat both as a skipped image.
	ErrMultipleFaces = fmt.Errorf("%w: multiple faces are ambiguous", ErrNoFaceDetected)

	// ErrCorruptTrainingData is returned when a serialized collection cannot be decoded.
	ErrCorruptTrainingData = errors.New("corrupt training data")

	// ErrDimensionMismatch is returned when embeddings of different lengths are mixed.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidThreshold is returned for negative, NaN or infinite thresholds.
	ErrInvalidThreshold = errors.New("invalid distance threshold")
)
