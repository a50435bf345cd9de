package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/constants"
	"github.com/kozaktomas/face-tagger/internal/contrast"
	"github.com/kozaktomas/face-tagger/internal/palette"
)

// ContrastHandler handles label color endpoints
type ContrastHandler struct {
	config *config.Config
}

// NewContrastHandler creates a new contrast handler
func NewContrastHandler(cfg *config.Config) *ContrastHandler {
	return &ContrastHandler{config: cfg}
}

// ContrastRequest represents a contrast request
type ContrastRequest struct {
	Background string `json:"background"`
	Algorithm  string `json:"algorithm"`
}

// ContrastResponse represents the chosen text color for a background
type ContrastResponse struct {
	Background string              `json:"background"`
	Algorithm  contrast.Algorithm  `json:"algorithm"`
	Foreground contrast.Foreground `json:"foreground"`
	Text       string              `json:"text"`
	Scores     map[string]float64  `json:"scores"`
}

// algorithm resolves the requested algorithm, falling back to the configured one.
func (h *ContrastHandler) algorithm(name string) (contrast.Algorithm, error) {
	if name == "" {
		name = h.config.Contrast.Algorithm
	}
	return contrast.ParseAlgorithm(name)
}

// Resolve picks white or black text for a background color.
func (h *ContrastHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ContrastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	bg, err := contrast.Parse(req.Background)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	algo, err := h.algorithm(req.Algorithm)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	resolver := contrast.Resolver{Algorithm: algo}
	fg := resolver.Resolve(bg)
	respondJSON(w, http.StatusOK, ContrastResponse{
		Background: bg.Hex(),
		Algorithm:  algo,
		Foreground: fg,
		Text:       fg.Color().Hex(),
		Scores: map[string]float64{
			string(contrast.White): resolver.Score(bg, contrast.White.Color()),
			string(contrast.Black): resolver.Score(bg, contrast.Black.Color()),
		},
	})
}

// PaletteEntry is one slot of the color cycle.
type PaletteEntry struct {
	Slot int `json:"slot"`
	palette.Assignment
}

// MarshalJSON flattens the assignment next to the slot.
func (e PaletteEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Slot       int    `json:"slot"`
		Background string `json:"background"`
		Text       string `json:"text"`
	}{e.Slot, e.Background.Hex(), e.Text.Hex()})
}

// PaletteResponse represents a palette preview
type PaletteResponse struct {
	Seed      uint64             `json:"seed"`
	Size      int                `json:"size"`
	Algorithm contrast.Algorithm `json:"algorithm"`
	Slots     []PaletteEntry     `json:"slots"`
}

// Palette previews the shuffled color cycle. Query parameters: seed, count, algorithm.
func (h *ContrastHandler) Palette(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	seed := h.config.Colors.Seed
	if s := q.Get("seed"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid seed")
			return
		}
		seed = v
	}

	count := constants.DefaultPalettePreview
	if s := q.Get("count"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			respondError(w, http.StatusBadRequest, "invalid count")
			return
		}
		count = v
	}

	algo, err := h.algorithm(q.Get("algorithm"))
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	cycle, err := palette.NewCycle(palette.Default(), palette.NewRand(seed))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	assigner := palette.NewAssigner(cycle, contrast.Resolver{Algorithm: algo}, palette.ModeDetection)

	count = min(count, cycle.Len())
	slots := make([]PaletteEntry, count)
	for i := range slots {
		slots[i] = PaletteEntry{Slot: i, Assignment: assigner.ForSlot(i)}
	}

	respondJSON(w, http.StatusOK, PaletteResponse{
		Seed:      seed,
		Size:      cycle.Len(),
		Algorithm: algo,
		Slots:     slots,
	})
}
