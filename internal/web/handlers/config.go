package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/database"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Threshold    float64  `json:"threshold"`
	Dim          int      `json:"dim"`
	Algorithm    string   `json:"algorithm"`
	ColorMode    string   `json:"color_mode"`
	TrainingRoot string   `json:"training_root"`
	Extensions   []string `json:"extensions"`
	Storage      string   `json:"storage"`
	RunHistory   bool     `json:"run_history"`
}

// Get returns the effective configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	storage := "file"
	if database.IsInitialized() {
		storage = "postgres"
	}

	respondJSON(w, http.StatusOK, ConfigResponse{
		Threshold:    h.config.Match.Threshold,
		Dim:          h.config.Match.Dim,
		Algorithm:    h.config.Contrast.Algorithm,
		ColorMode:    h.config.Colors.Mode,
		TrainingRoot: h.config.Training.Root,
		Extensions:   h.config.Training.Extensions,
		Storage:      storage,
		RunHistory:   database.IsInitialized(),
	})
}
