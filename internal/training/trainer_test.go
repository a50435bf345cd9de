package training

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kozaktomas/face-tagger/internal/facematch"
)

var errEmbedderDown = errors.New("embedding service unavailable")

// fakeEmbedder reads images written by writeImage: "face:1,2,3" yields that
// embedding, "none" and "many" yield the detection errors, "down" fails the call.
type fakeEmbedder struct {
	calls atomic.Int32
}

func (f *fakeEmbedder) EmbedSingle(_ context.Context, data []byte) (facematch.Embedding, error) {
	f.calls.Add(1)
	s := string(data)
	switch {
	case s == "none":
		return nil, facematch.ErrNoFaceDetected
	case s == "many":
		return nil, facematch.ErrMultipleFaces
	case s == "down":
		return nil, errEmbedderDown
	case strings.HasPrefix(s, "face:"):
		var emb facematch.Embedding
		for _, p := range strings.Split(strings.TrimPrefix(s, "face:"), ",") {
			v, err := strconv.ParseFloat(p, 32)
			if err != nil {
				return nil, err
			}
			emb = append(emb, float32(v))
		}
		return emb, nil
	}
	return nil, errors.New("unexpected image")
}

func writeImage(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverLabels(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"bob", "alice", ".cache", "carol"} {
		if err := os.Mkdir(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeImage(t, root, "readme.txt", "x")

	labels, err := DiscoverLabels(root)
	if err != nil {
		t.Fatalf("DiscoverLabels() error = %v", err)
	}

	want := []string{"alice", "bob", "carol"}
	if strings.Join(labels, ",") != strings.Join(want, ",") {
		t.Errorf("DiscoverLabels() = %v, want %v", labels, want)
	}
}

func TestDiscoverLabels_MissingRoot(t *testing.T) {
	labels, err := DiscoverLabels(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(labels) != 0 {
		t.Errorf("expected no labels, got %v", labels)
	}
}

func TestAmbiguousLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{"distinct", []string{"alice", "bob"}, ""},
		{"diacritics and separators", []string{"Jan-Novák", "alice", "jan_novak"}, "Jan-Novák,jan_novak"},
		{"case only", []string{"Bob", "alice", "bob"}, "Bob,bob"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, group := range AmbiguousLabels(tt.labels) {
				got = append(got, strings.Join(group, ","))
			}
			if strings.Join(got, ";") != tt.want {
				t.Errorf("AmbiguousLabels(%v) = %v, want %q", tt.labels, got, tt.want)
			}
		})
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.JPG", "a.png", "c.jpeg", "notes.txt", "d.gif", "e.Png"} {
		writeImage(t, dir, name, "x")
	}

	images, err := ListImages(dir, nil)
	if err != nil {
		t.Fatalf("ListImages() error = %v", err)
	}

	var names []string
	for _, p := range images {
		if !filepath.IsAbs(p) {
			t.Errorf("expected absolute path, got %s", p)
		}
		names = append(names, filepath.Base(p))
	}
	want := "a.png,b.JPG,c.jpeg,e.Png"
	if strings.Join(names, ",") != want {
		t.Errorf("ListImages() = %v, want %s", names, want)
	}

	gifs, _ := ListImages(dir, []string{"gif"})
	if len(gifs) != 1 {
		t.Errorf("expected 1 gif, got %v", gifs)
	}
}

func TestBuildSet_SkipsAndKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "1.jpg", "face:1,0")
	writeImage(t, dir, "2.jpg", "none")
	writeImage(t, dir, "3.jpg", "face:2,0")
	writeImage(t, dir, "4.jpg", "many")
	writeImage(t, dir, "5.jpg", "face:3,0")

	images, _ := ListImages(dir, nil)
	images = append(images, filepath.Join(dir, "missing.jpg"))

	tr := NewTrainer(&fakeEmbedder{}, Options{Concurrency: 4})
	set, skipped, err := tr.BuildSet(context.Background(), "alice", images)
	if err != nil {
		t.Fatalf("BuildSet() error = %v", err)
	}

	if set.Label != "alice" {
		t.Errorf("label = %q, want alice", set.Label)
	}
	if len(set.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(set.Embeddings))
	}
	for i, want := range []float32{1, 2, 3} {
		if set.Embeddings[i][0] != want {
			t.Errorf("embedding %d = %v, want first value %v", i, set.Embeddings[i], want)
		}
	}
	if len(skipped) != 3 {
		t.Errorf("expected 3 skipped images, got %d", len(skipped))
	}
}

func TestBuildSet_AllSkipped(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "1.jpg", "none")
	writeImage(t, dir, "2.jpg", "many")
	images, _ := ListImages(dir, nil)

	tr := NewTrainer(&fakeEmbedder{}, Options{})
	_, _, err := tr.BuildSet(context.Background(), "ghost", images)

	var failed *TrainingFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected TrainingFailedError, got %v", err)
	}
	if failed.Label != "ghost" || failed.Images != 2 {
		t.Errorf("unexpected error fields: %+v", failed)
	}
}

func TestBuildSet_EmbedderError(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "1.jpg", "face:1,0")
	writeImage(t, dir, "2.jpg", "down")
	writeImage(t, dir, "3.jpg", "none")
	images, _ := ListImages(dir, nil)

	tr := NewTrainer(&fakeEmbedder{}, Options{Concurrency: 2})
	set, skipped, err := tr.BuildSet(context.Background(), "alice", images)
	if !errors.Is(err, errEmbedderDown) {
		t.Fatalf("expected embedder error, got %v", err)
	}
	var failed *TrainingFailedError
	if errors.As(err, &failed) {
		t.Errorf("embedder error reported as training failure: %v", err)
	}
	if len(set.Embeddings) != 0 || len(skipped) != 0 {
		t.Errorf("expected no partial result, got %d embeddings and %d skipped", len(set.Embeddings), len(skipped))
	}
}

func TestTrain_EmbedderError(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "alice"), "1.jpg", "face:0,0")
	writeImage(t, filepath.Join(root, "bob"), "1.jpg", "down")

	_, err := NewTrainer(&fakeEmbedder{}, Options{}).Train(context.Background(), root)
	if !errors.Is(err, errEmbedderDown) {
		t.Fatalf("expected embedder error, got %v", err)
	}
	if !strings.Contains(err.Error(), `label "bob"`) {
		t.Errorf("error should name the label, got %v", err)
	}
}

func TestTrain(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "bob"), "1.png", "face:5,5")
	writeImage(t, filepath.Join(root, "alice"), "1.jpg", "face:0,0")
	writeImage(t, filepath.Join(root, "alice"), "2.jpg", "face:0.1,0")
	writeImage(t, filepath.Join(root, "alice"), "3.jpg", "none")
	writeImage(t, filepath.Join(root, "ghost"), "1.jpg", "many")

	var progressed atomic.Int32
	tr := NewTrainer(&fakeEmbedder{}, Options{
		Concurrency: 2,
		OnProgress:  func(Progress) { progressed.Add(1) },
	})

	report, err := tr.Train(context.Background(), root)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	labels := report.Collection.Labels()
	if strings.Join(labels, ",") != "alice,bob" {
		t.Errorf("labels = %v, want [alice bob]", labels)
	}
	if len(report.Collection[0].Embeddings) != 2 {
		t.Errorf("alice should have 2 embeddings, got %d", len(report.Collection[0].Embeddings))
	}
	if len(report.Failed) != 1 || report.Failed[0] != "ghost" {
		t.Errorf("Failed = %v, want [ghost]", report.Failed)
	}
	if report.Images != 5 || len(report.Skipped) != 2 {
		t.Errorf("Images = %d, Skipped = %d, want 5 and 2", report.Images, len(report.Skipped))
	}
	if progressed.Load() != 5 {
		t.Errorf("progress called %d times, want 5", progressed.Load())
	}

	var failed *TrainingFailedError
	if !errors.As(report.Err(), &failed) || failed.Label != "ghost" {
		t.Errorf("Report.Err() = %v, want ghost failure", report.Err())
	}
}

func TestTrain_ReportsAmbiguousLabels(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "jan_novak"), "1.jpg", "face:0,0")
	writeImage(t, filepath.Join(root, "Jan-Novák"), "1.jpg", "face:1,1")
	writeImage(t, filepath.Join(root, "alice"), "1.jpg", "face:5,5")

	report, err := NewTrainer(&fakeEmbedder{}, Options{}).Train(context.Background(), root)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if len(report.Collection) != 3 {
		t.Errorf("expected all 3 labels to be trained, got %v", report.Collection.Labels())
	}
	if len(report.Ambiguous) != 1 || strings.Join(report.Ambiguous[0], ",") != "Jan-Novák,jan_novak" {
		t.Errorf("Ambiguous = %v, want [[Jan-Novák jan_novak]]", report.Ambiguous)
	}

	set, ok := report.Collection.Find("JAN NOVAK")
	if !ok || set.Label != "Jan-Novák" {
		t.Errorf("Find() = %q, %v, want the first sorted label", set.Label, ok)
	}
}

func TestTrain_EmptyRoot(t *testing.T) {
	tr := NewTrainer(&fakeEmbedder{}, Options{})

	_, err := tr.Train(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNoTrainingData) {
		t.Errorf("expected ErrNoTrainingData, got %v", err)
	}
}

func TestTrain_DimensionMismatch(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "alice"), "1.jpg", "face:0,0")
	writeImage(t, filepath.Join(root, "bob"), "1.jpg", "face:0,0,0")

	tr := NewTrainer(&fakeEmbedder{}, Options{})
	_, err := tr.Train(context.Background(), root)
	if !errors.Is(err, facematch.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestTrain_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "alice"), "1.jpg", "face:0,0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	emb := &fakeEmbedder{}
	tr := NewTrainer(emb, Options{})
	if _, err := tr.Train(ctx, root); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if emb.calls.Load() != 0 {
		t.Errorf("embedder called %d times after cancel", emb.calls.Load())
	}
}

func TestTrain_ResultFeedsMatcher(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "alice"), "1.jpg", "face:0,0")
	writeImage(t, filepath.Join(root, "bob"), "1.jpg", "face:4,4")

	report, err := NewTrainer(&fakeEmbedder{}, Options{}).Train(context.Background(), root)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	m, err := facematch.NewMatcher(report.Collection, facematch.MatcherConfig{Threshold: 0.55})
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	if r := m.Match(facematch.Embedding{0.1, 0.1}); r.Label != "alice" {
		t.Errorf("expected alice, got %v", r)
	}
}
