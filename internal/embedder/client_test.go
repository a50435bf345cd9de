package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-tagger/internal/facematch"
)

func newFaceServer(t *testing.T, resp FaceResponse) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" || r.Method != http.MethodPost {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		if _, err := io.ReadAll(file); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			http.Error(w, "unexpected content type "+ct, http.StatusUnsupportedMediaType)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F'}

func TestDetectAll_FiltersByScore(t *testing.T) {
	server := newFaceServer(t, FaceResponse{
		FacesCount: 3,
		Model:      "buffalo_l",
		Faces: []FaceDetection{
			{FaceIndex: 0, Dim: 2, Embedding: []float32{0.1, 0.2}, BBox: []float64{1, 2, 3, 4}, DetScore: 0.9},
			{FaceIndex: 1, Dim: 2, Embedding: []float32{0.3, 0.4}, BBox: []float64{5, 6, 7, 8}, DetScore: 0.3},
			{FaceIndex: 2, Dim: 2, Embedding: []float32{0.5, 0.6}, BBox: []float64{9, 10, 11, 12}, DetScore: 0.8},
		},
	})

	c := NewClient(server.URL+"/", 0.5)
	got, err := c.DetectAll(context.Background(), jpegHeader)
	if err != nil {
		t.Fatalf("DetectAll() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(got))
	}
	if got[0].Embedding[0] != 0.1 || got[1].Embedding[0] != 0.5 {
		t.Errorf("unexpected detection order: %+v", got)
	}
	if got[1].BBox[0] != 9 || got[1].Score != 0.8 {
		t.Errorf("unexpected detection: %+v", got[1])
	}
}

func TestEmbedSingle(t *testing.T) {
	face := FaceDetection{Dim: 2, Embedding: []float32{1, 2}, BBox: []float64{0, 0, 1, 1}, DetScore: 0.99}

	tests := []struct {
		name      string
		faces     []FaceDetection
		expectErr error
	}{
		{"one face", []FaceDetection{face}, nil},
		{"no face", nil, facematch.ErrNoFaceDetected},
		{"two faces", []FaceDetection{face, face}, facematch.ErrMultipleFaces},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFaceServer(t, FaceResponse{FacesCount: len(tt.faces), Faces: tt.faces})
			emb, err := NewClient(server.URL, 0).EmbedSingle(context.Background(), jpegHeader)

			if tt.expectErr != nil {
				if !errors.Is(err, tt.expectErr) {
					t.Errorf("expected %v, got %v", tt.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("EmbedSingle() error = %v", err)
			}
			if len(emb) != 2 || emb[1] != 2 {
				t.Errorf("unexpected embedding %v", emb)
			}
		})
	}
}

func TestMultipleFacesCountsAsNoFace(t *testing.T) {
	face := FaceDetection{Embedding: []float32{1}, DetScore: 1}
	server := newFaceServer(t, FaceResponse{Faces: []FaceDetection{face, face, face}})

	_, err := NewClient(server.URL, 0).EmbedSingle(context.Background(), jpegHeader)
	if !errors.Is(err, facematch.ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected in chain, got %v", err)
	}
}

func TestDetectFaces_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 0).DetectFaces(context.Background(), jpegHeader)
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpegHeader, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a\x00\x00"), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"short", []byte{0xFF}, "application/octet-stream"},
		{"unknown", []byte("plain text data"), "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.want {
				t.Errorf("detectMIMEType() = %s, want %s", got, tt.want)
			}
		})
	}
}
