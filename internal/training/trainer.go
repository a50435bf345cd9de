package training

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kozaktomas/face-tagger/internal/facematch"
)

// ErrNoTrainingData is returned when training produced no labels at all.
var ErrNoTrainingData = errors.New("no training data")

var errUnreadableImage = errors.New("failed to read image")

// TrainingFailedError is returned when none of a label's images yielded an embedding.
type TrainingFailedError struct {
	Label  string
	Images int
}

func (e *TrainingFailedError) Error() string {
	return fmt.Sprintf("training failed for %q: no usable face in %d images", e.Label, e.Images)
}

// Embedder computes the embedding of the single face in an image.
// It returns facematch.ErrNoFaceDetected (or ErrMultipleFaces) when the image
// does not hold exactly one face.
type Embedder interface {
	EmbedSingle(ctx context.Context, imageData []byte) (facematch.Embedding, error)
}

// Progress is reported once per processed image.
type Progress struct {
	Label   string
	Path    string
	Skipped bool
}

// Options configures a Trainer.
type Options struct {
	Extensions  []string
	Concurrency int
	// OnProgress, when set, is called after every image. It may be called concurrently.
	OnProgress func(Progress)
}

// SkippedImage records an image that did not contribute an embedding.
type SkippedImage struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Report summarizes a training run.
type Report struct {
	Collection facematch.Collection
	Images     int
	Skipped    []SkippedImage
	Failed     []string
	// Ambiguous lists label groups that are indistinguishable by name lookup.
	Ambiguous [][]string
	Duration  time.Duration
}

// Err joins a TrainingFailedError for every failed label, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, label := range r.Failed {
		errs = append(errs, &TrainingFailedError{Label: label, Images: r.imagesFor(label)})
	}
	return errors.Join(errs...)
}

func (r *Report) imagesFor(label string) int {
	n := 0
	for _, s := range r.Skipped {
		if s.Label == label {
			n++
		}
	}
	return n
}

// Trainer turns labeled reference images into a collection.
type Trainer struct {
	embedder Embedder
	opts     Options
	readFile func(string) ([]byte, error)
}

// NewTrainer creates a trainer. Concurrency below 1 is treated as 1.
func NewTrainer(embedder Embedder, opts Options) *Trainer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	return &Trainer{
		embedder: embedder,
		opts:     opts,
		readFile: os.ReadFile,
	}
}

// BuildSet embeds every image of one label. Images without exactly one face
// and unreadable images are skipped, any other embedder error is returned.
// Embeddings keep the order of images.
func (t *Trainer) BuildSet(ctx context.Context, label string, images []string) (facematch.LabeledEmbeddings, []SkippedImage, error) {
	sem := make(chan struct{}, t.opts.Concurrency)
	return t.buildSet(ctx, sem, label, images)
}

func (t *Trainer) buildSet(ctx context.Context, sem chan struct{}, label string, images []string) (facematch.LabeledEmbeddings, []SkippedImage, error) {
	embeddings := make([]facematch.Embedding, len(images))
	reasons := make([]error, len(images))

	var wg sync.WaitGroup
	for i, path := range images {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			emb, err := t.embedImage(ctx, path)
			if err != nil {
				reasons[i] = err
			} else {
				embeddings[i] = emb
			}

			if t.opts.OnProgress != nil {
				t.opts.OnProgress(Progress{Label: label, Path: path, Skipped: err != nil})
			}
		}(i, path)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return facematch.LabeledEmbeddings{}, nil, err
	}

	for i, path := range images {
		if reasons[i] != nil && !skippable(reasons[i]) {
			return facematch.LabeledEmbeddings{}, nil, fmt.Errorf("embedding %s: %w", path, reasons[i])
		}
	}

	set := facematch.LabeledEmbeddings{Label: label}
	var skipped []SkippedImage
	for i, path := range images {
		if reasons[i] != nil {
			log.Printf("WARNING: skipping %s for %q: %v", path, label, reasons[i])
			skipped = append(skipped, SkippedImage{Label: label, Path: path, Reason: reasons[i].Error()})
			continue
		}
		set.Embeddings = append(set.Embeddings, embeddings[i])
	}

	if len(set.Embeddings) == 0 {
		return set, skipped, &TrainingFailedError{Label: label, Images: len(images)}
	}
	return set, skipped, nil
}

func (t *Trainer) embedImage(ctx context.Context, path string) (facematch.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := t.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUnreadableImage, err)
	}

	emb, err := t.embedder.EmbedSingle(ctx, data)
	if err != nil {
		return nil, err
	}
	if len(emb) == 0 {
		return nil, facematch.ErrNoFaceDetected
	}
	return emb.Clone(), nil
}

// skippable reports whether an image error drops only that image.
func skippable(err error) bool {
	return errors.Is(err, facematch.ErrNoFaceDetected) || errors.Is(err, errUnreadableImage)
}

// Train discovers the labels under root and builds a set for each of them.
// Labels are processed in parallel and share one image semaphore. Labels that
// yield no embedding are left out and listed in Report.Failed.
func (t *Trainer) Train(ctx context.Context, root string) (*Report, error) {
	start := time.Now()

	labels, err := DiscoverLabels(root)
	if err != nil {
		return nil, err
	}

	images := make([][]string, len(labels))
	report := &Report{Ambiguous: AmbiguousLabels(labels)}
	for _, group := range report.Ambiguous {
		log.Printf("WARNING: labels %q share the lookup key %q", group, facematch.NormalizeLabel(group[0]))
	}
	for i, label := range labels {
		images[i], err = ListImages(filepath.Join(root, label), t.opts.Extensions)
		if err != nil {
			return nil, err
		}
		report.Images += len(images[i])
	}

	type labelResult struct {
		set     facematch.LabeledEmbeddings
		skipped []SkippedImage
		err     error
	}
	results := make([]labelResult, len(labels))

	sem := make(chan struct{}, t.opts.Concurrency)
	var wg sync.WaitGroup
	for i, label := range labels {
		wg.Add(1)
		go func(i int, label string) {
			defer wg.Done()
			set, skipped, err := t.buildSet(ctx, sem, label, images[i])
			results[i] = labelResult{set: set, skipped: skipped, err: err}
		}(i, label)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, r := range results {
		report.Skipped = append(report.Skipped, r.skipped...)

		var failed *TrainingFailedError
		switch {
		case errors.As(r.err, &failed):
			log.Printf("WARNING: %v", failed)
			report.Failed = append(report.Failed, labels[i])
		case r.err != nil:
			return nil, fmt.Errorf("label %q: %w", labels[i], r.err)
		default:
			report.Collection = append(report.Collection, r.set)
		}
	}
	report.Duration = time.Since(start)

	if _, err := report.Collection.Dim(); err != nil {
		return report, err
	}
	if len(report.Collection) == 0 {
		return report, errors.Join(ErrNoTrainingData, report.Err())
	}
	return report, nil
}
