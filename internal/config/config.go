package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Match     MatchConfig     `yaml:"match"`
	Contrast  ContrastConfig  `yaml:"contrast"`
	Colors    ColorsConfig    `yaml:"colors"`
	Training  TrainingConfig  `yaml:"training"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Render    RenderConfig    `yaml:"render"`
	Web       WebConfig       `yaml:"web"`
}

type MatchConfig struct {
	Threshold float64 `yaml:"threshold"` // maximum mean distance for a known face
	Dim       int     `yaml:"dim"`       // expected embedding length, 0 = from collection
}

type ContrastConfig struct {
	Algorithm string `yaml:"algorithm"`
}

type ColorsConfig struct {
	Mode string `yaml:"mode"` // detection or label
	Seed uint64 `yaml:"seed"`
}

type TrainingConfig struct {
	Root        string   `yaml:"root"`
	Extensions  []string `yaml:"extensions"`
	Concurrency int      `yaml:"concurrency"`
}

type EmbeddingConfig struct {
	URL      string  `yaml:"url"`
	MinScore float64 `yaml:"min_score"`
}

type StorageConfig struct {
	TrainedPath   string `yaml:"trained_path"`
	HNSWIndexPath string `yaml:"hnsw_index_path"` // optional, reference index is not persisted when empty
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`            // PostgreSQL connection URL, empty = JSON file storage
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

type RenderConfig struct {
	LineWidth int `yaml:"line_width"`
	FontScale int `yaml:"font_scale"`
	MaxSize   int `yaml:"max_size"` // longest side of the output image, 0 = keep size
}

type WebConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"` // localhost is always allowed
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a non-negative float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && !math.IsInf(f, 0) {
		return f
	}
	return defaultVal
}

func envUint64(key string, defaultVal uint64) uint64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma separated list, e.g. ".png,.jpg".
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	cfg.Match.Threshold = envFloat("MATCH_THRESHOLD", cfg.Match.Threshold)
	cfg.Match.Dim = envInt("EMBEDDING_DIM", cfg.Match.Dim)
	cfg.Contrast.Algorithm = envString("CONTRAST_ALGORITHM", cfg.Contrast.Algorithm)
	cfg.Colors.Mode = envString("COLOR_MODE", cfg.Colors.Mode)
	cfg.Colors.Seed = envUint64("COLOR_SEED", cfg.Colors.Seed)
	cfg.Training.Root = envString("TRAINING_ROOT", cfg.Training.Root)
	cfg.Training.Extensions = envList("TRAINING_EXTENSIONS", cfg.Training.Extensions)
	cfg.Training.Concurrency = envInt("TRAINING_CONCURRENCY", cfg.Training.Concurrency)
	cfg.Embedding.URL = envString("EMBEDDING_URL", cfg.Embedding.URL)
	cfg.Embedding.MinScore = envFloat("EMBEDDING_MIN_SCORE", cfg.Embedding.MinScore)
	cfg.Storage.TrainedPath = envString("TRAINED_PATH", cfg.Storage.TrainedPath)
	cfg.Storage.HNSWIndexPath = envString("HNSW_INDEX_PATH", cfg.Storage.HNSWIndexPath)
	cfg.Database.URL = envString("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Render.LineWidth = envInt("RENDER_LINE_WIDTH", cfg.Render.LineWidth)
	cfg.Render.FontScale = envInt("RENDER_FONT_SCALE", cfg.Render.FontScale)
	cfg.Render.MaxSize = envInt("RENDER_MAX_SIZE", cfg.Render.MaxSize)
	cfg.Web.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", cfg.Web.AllowedOrigins)

	return &cfg
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	var errs []error
	if c.Match.Threshold < 0 || math.IsNaN(c.Match.Threshold) || math.IsInf(c.Match.Threshold, 0) {
		errs = append(errs, fmt.Errorf("match threshold must be a non-negative number, got %v", c.Match.Threshold))
	}
	if c.Match.Dim < 0 {
		errs = append(errs, fmt.Errorf("embedding dim must not be negative, got %d", c.Match.Dim))
	}
	if c.Training.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("training concurrency must be at least 1, got %d", c.Training.Concurrency))
	}
	if c.Storage.TrainedPath == "" && c.Database.URL == "" {
		errs = append(errs, errors.New("either TRAINED_PATH or DATABASE_URL must be set"))
	}
	if c.Render.LineWidth < 1 || c.Render.FontScale < 1 {
		errs = append(errs, errors.New("render line width and font scale must be at least 1"))
	}
	return errors.Join(errs...)
}
