package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/constants"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/kozaktomas/face-tagger/internal/overlay"
	"github.com/kozaktomas/face-tagger/internal/recognize"
)

// FacesHandler handles matching and recognition endpoints
type FacesHandler struct {
	config   *config.Config
	pipeline *recognize.Pipeline
}

// NewFacesHandler creates a new faces handler
func NewFacesHandler(cfg *config.Config, pipeline *recognize.Pipeline) *FacesHandler {
	return &FacesHandler{
		config:   cfg,
		pipeline: pipeline,
	}
}

// LabelInfo describes one trained label.
type LabelInfo struct {
	Label      string `json:"label"`
	Embeddings int    `json:"embeddings"`
}

// LabelsResponse represents the labels response
type LabelsResponse struct {
	Labels    []LabelInfo `json:"labels"`
	Dim       int         `json:"dim"`
	Threshold float64     `json:"threshold"`
}

// ListLabels returns the labels of the served collection in collection order.
func (h *FacesHandler) ListLabels(w http.ResponseWriter, r *http.Request) {
	m := h.pipeline.Matcher()
	if m == nil {
		respondError(w, http.StatusNotFound, "no trained collection loaded")
		return
	}

	c := m.Collection()
	labels := make([]LabelInfo, len(c))
	for i, set := range c {
		labels[i] = LabelInfo{Label: set.Label, Embeddings: len(set.Embeddings)}
	}

	respondJSON(w, http.StatusOK, LabelsResponse{
		Labels:    labels,
		Dim:       m.Dim(),
		Threshold: m.Threshold(),
	})
}

// MatchRequest represents a match request
type MatchRequest struct {
	Embedding []*float32 `json:"embedding"`
}

// Match classifies a single embedding.
func (h *FacesHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	query := make(facematch.Embedding, len(req.Embedding))
	for i, v := range req.Embedding {
		if v == nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("embedding value %d is null", i))
			return
		}
		query[i] = *v
	}

	m := h.pipeline.Matcher()
	if m == nil {
		respondError(w, http.StatusNotFound, "no trained collection loaded")
		return
	}
	if err := m.CheckDim(query); err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, m.Match(query))
}

// Recognize detects and matches every face of an uploaded image. With
// ?render=true the annotated image is returned instead of JSON.
func (h *FacesHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	render, _ := strconv.ParseBool(r.URL.Query().Get("render"))

	if h.pipeline.Matcher() == nil {
		respondError(w, http.StatusNotFound, "no trained collection loaded")
		return
	}
	frame, err := h.pipeline.Recognize(r.Context(), data)
	if err != nil {
		log.Printf("recognize %s: %v", sanitizeForLog(header.Filename), err)
		status := http.StatusBadGateway // embedder failures
		if errors.Is(err, facematch.ErrDimensionMismatch) {
			status = http.StatusUnprocessableEntity
		}
		respondError(w, status, err.Error())
		return
	}

	if !render {
		respondJSON(w, http.StatusOK, frame)
		return
	}

	img, _, err := overlay.Decode(data)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	img, anns := overlay.Fit(img, h.config.Render.MaxSize, frame.Annotations())
	out := overlay.Draw(img, anns, overlay.Options{
		LineWidth: h.config.Render.LineWidth,
		FontScale: h.config.Render.FontScale,
	})

	var buf bytes.Buffer
	if err := overlay.Encode(&buf, out, "result.jpg"); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-People", fmt.Sprint(len(frame.People)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
