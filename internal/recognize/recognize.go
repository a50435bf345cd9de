// Package recognize runs detection, matching and color assignment for one photo.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/kozaktomas/face-tagger/internal/overlay"
	"github.com/kozaktomas/face-tagger/internal/palette"
)

// Detector finds faces and their embeddings in an image.
type Detector interface {
	DetectAll(ctx context.Context, imageData []byte) ([]facematch.Detection, error)
}

// Face is one detected face with its match and colors.
type Face struct {
	Index  int                   `json:"index"`
	BBox   []float64             `json:"bbox"`
	Score  float64               `json:"det_score"`
	Match  facematch.MatchResult `json:"match"`
	Colors *palette.Assignment   `json:"colors,omitempty"` // nil for unknown faces
}

// Frame is the recognition result for one image.
type Frame struct {
	Faces  []Face   `json:"faces"`
	People []string `json:"people"` // distinct known labels in detection order
}

// Annotations returns overlay input for the known faces.
func (f *Frame) Annotations() []overlay.Annotation {
	var anns []overlay.Annotation
	for _, face := range f.Faces {
		if !face.Match.Known || face.Colors == nil {
			continue
		}
		anns = append(anns, overlay.Annotation{
			BBox:       face.BBox,
			Label:      face.Match.Label,
			Background: face.Colors.Background,
			Text:       face.Colors.Text,
		})
	}
	return anns
}

// Unknown returns how many faces did not match any label.
func (f *Frame) Unknown() int {
	n := 0
	for _, face := range f.Faces {
		if !face.Match.Known {
			n++
		}
	}
	return n
}

// Pipeline recognizes faces in photos. The matcher can be replaced while
// recognitions are running, e.g. after retraining.
type Pipeline struct {
	detector Detector
	assigner *palette.Assigner
	matcher  atomic.Pointer[facematch.Matcher]
}

// NewPipeline creates a pipeline.
func NewPipeline(detector Detector, matcher *facematch.Matcher, assigner *palette.Assigner) *Pipeline {
	p := &Pipeline{detector: detector, assigner: assigner}
	p.matcher.Store(matcher)
	return p
}

// Matcher returns the matcher currently in use.
func (p *Pipeline) Matcher() *facematch.Matcher {
	return p.matcher.Load()
}

// SetMatcher swaps the matcher used by subsequent recognitions.
func (p *Pipeline) SetMatcher(m *facematch.Matcher) {
	p.matcher.Store(m)
}

// Recognize detects every face in imageData and matches it against the
// trained collection. Every face takes a color slot in detection order,
// known faces get the colors of their slot (or of their label in label mode).
func (p *Pipeline) Recognize(ctx context.Context, imageData []byte) (*Frame, error) {
	m := p.matcher.Load()
	if m == nil {
		return nil, errors.New("no trained collection loaded")
	}

	detections, err := p.detector.DetectAll(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	queries := make([]facematch.Embedding, len(detections))
	for i, d := range detections {
		if err := m.CheckDim(d.Embedding); err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		queries[i] = d.Embedding
	}
	results := m.MatchAll(queries)

	frame := &Frame{Faces: make([]Face, len(detections)), People: []string{}}
	seen := make(map[string]bool)
	for i, d := range detections {
		face := Face{Index: i, BBox: d.BBox, Score: d.Score, Match: results[i]}
		if results[i].Known {
			colors := p.assigner.Assign(i, results[i].Label)
			face.Colors = &colors
			if !seen[results[i].Label] {
				seen[results[i].Label] = true
				frame.People = append(frame.People, results[i].Label)
			}
		}
		frame.Faces[i] = face
	}
	return frame, nil
}
