package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/contrast"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/database/postgres"
	"github.com/kozaktomas/face-tagger/internal/embedder"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/kozaktomas/face-tagger/internal/palette"
	"github.com/spf13/cobra"
)

// loadConfig loads the configuration and applies the global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Load()
	if cmd.Flags().Changed("threshold") {
		cfg.Match.Threshold = mustGetFloat64(cmd, "threshold")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore connects to PostgreSQL when DATABASE_URL is set and returns the
// collection store, falling back to the JSON file. The returned close func is never nil.
func openStore(ctx context.Context, cfg *config.Config) (database.CollectionStore, func(), error) {
	closeFn := func() {}
	if cfg.Database.URL != "" {
		pool, err := postgres.Initialize(ctx, &cfg.Database)
		if err != nil {
			return nil, closeFn, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		closeFn = func() { _ = pool.Close() }
	}

	store, err := database.GetCollectionStore(ctx, cfg.Storage.TrainedPath)
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	return store, closeFn, nil
}

// loadMatcher loads the trained collection and builds a matcher from it.
func loadMatcher(ctx context.Context, cfg *config.Config, store database.CollectionStore) (*facematch.Matcher, error) {
	c, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNotTrained) {
			return nil, fmt.Errorf("%w: run 'face-tagger train' first", err)
		}
		return nil, fmt.Errorf("failed to load trained collection: %w", err)
	}
	return facematch.NewMatcher(c, facematch.MatcherConfig{
		Threshold: cfg.Match.Threshold,
		Dim:       cfg.Match.Dim,
	})
}

// newAssigner builds the color assigner described by the configuration.
func newAssigner(cfg *config.Config) (*palette.Assigner, error) {
	algo, err := contrast.ParseAlgorithm(cfg.Contrast.Algorithm)
	if err != nil {
		return nil, err
	}
	mode, err := palette.ParseMode(cfg.Colors.Mode)
	if err != nil {
		return nil, err
	}
	cycle, err := palette.NewCycle(palette.Default(), palette.NewRand(cfg.Colors.Seed))
	if err != nil {
		return nil, err
	}
	return palette.NewAssigner(cycle, contrast.Resolver{Algorithm: algo}, mode), nil
}

func newEmbedder(cfg *config.Config) (*embedder.Client, error) {
	if cfg.Embedding.URL == "" {
		return nil, errors.New("EMBEDDING_URL environment variable is required")
	}
	return embedder.NewClient(cfg.Embedding.URL, cfg.Embedding.MinScore), nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
