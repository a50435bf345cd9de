package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/database/postgres"
	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Copy the trained collection between the JSON file and PostgreSQL",
}

var collectionPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Copy the JSON file collection into PostgreSQL",
	Long: `Read the collection from TRAINED_PATH (or --file) and replace the
collection stored in PostgreSQL with it. Requires DATABASE_URL.`,
	Args: cobra.NoArgs,
	RunE: runCollectionPush,
}

var collectionPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Export the PostgreSQL collection to a JSON file",
	Long: `Read the collection stored in PostgreSQL and write it to TRAINED_PATH
(or --file), replacing the file. Requires DATABASE_URL.`,
	Args: cobra.NoArgs,
	RunE: runCollectionPull,
}

func init() {
	rootCmd.AddCommand(collectionCmd)
	collectionCmd.AddCommand(collectionPushCmd)
	collectionCmd.AddCommand(collectionPullCmd)

	collectionCmd.PersistentFlags().String("file", "", "JSON collection file (default TRAINED_PATH)")
}

// collectionStores returns the JSON file store and the PostgreSQL repository.
func collectionStores(ctx context.Context, cmd *cobra.Command) (*database.FileStore, *postgres.CollectionRepository, *postgres.Pool, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Database.URL == "" {
		return nil, nil, nil, errors.New("DATABASE_URL environment variable is required")
	}
	path := filePath(cmd, cfg)
	if path == "" {
		return nil, nil, nil, errors.New("no collection file: set TRAINED_PATH or --file")
	}

	pool, err := postgres.Initialize(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return database.NewFileStore(path), postgres.NewCollectionRepository(pool), pool, nil
}

func filePath(cmd *cobra.Command, cfg *config.Config) string {
	if path := mustGetString(cmd, "file"); path != "" {
		return path
	}
	return cfg.Storage.TrainedPath
}

func runCollectionPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	file, repo, pool, err := collectionStores(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	c, err := file.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file.Path(), err)
	}
	if err := repo.Save(ctx, c); err != nil {
		return fmt.Errorf("failed to store collection: %w", err)
	}

	labels, embeddings, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Pushed %s to PostgreSQL: %d labels, %d embeddings\n", file.Path(), labels, embeddings)
	return nil
}

func runCollectionPull(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	file, repo, pool, err := collectionStores(ctx, cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	c, err := repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load collection from PostgreSQL: %w", err)
	}
	if err := file.Save(ctx, c); err != nil {
		return fmt.Errorf("failed to write %s: %w", file.Path(), err)
	}
	fmt.Printf("Pulled %d labels with %d embeddings into %s\n", len(c), c.EmbeddingCount(), file.Path())
	return nil
}
