package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/contrast"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/kozaktomas/face-tagger/internal/palette"
	"github.com/kozaktomas/face-tagger/internal/recognize"
)

// testConfig creates a config with the built-in defaults
func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Match.Threshold = 1
	cfg.Colors.Seed = 1
	return cfg
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type fakeDetector struct {
	detections []facematch.Detection
	err        error
}

func (f *fakeDetector) DetectAll(ctx context.Context, imageData []byte) ([]facematch.Detection, error) {
	return f.detections, f.err
}

func testCollection() facematch.Collection {
	return facematch.Collection{
		{Label: "alice", Embeddings: []facematch.Embedding{{0, 0}, {0.2, 0}}},
		{Label: "bob", Embeddings: []facematch.Embedding{{10, 10}}},
	}
}

// testPipeline creates a pipeline over testCollection, or without a matcher when c is nil
func testPipeline(t *testing.T, det recognize.Detector, c facematch.Collection) *recognize.Pipeline {
	t.Helper()

	var m *facematch.Matcher
	if c != nil {
		var err error
		m, err = facematch.NewMatcher(c, facematch.MatcherConfig{Threshold: 1})
		if err != nil {
			t.Fatalf("NewMatcher() error = %v", err)
		}
	}

	cycle, err := palette.NewCycle(palette.Default(), palette.NewRand(1))
	if err != nil {
		t.Fatal(err)
	}
	return recognize.NewPipeline(det, m, palette.NewAssigner(cycle, contrast.Resolver{}, palette.ModeDetection))
}

// multipartRequest creates a POST request uploading data as the "file" field
func multipartRequest(t *testing.T, target string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if data != nil {
		part, err := w.CreateFormFile("file", "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// testPNG encodes a solid gray image
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
