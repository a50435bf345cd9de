package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/constants"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/database/postgres"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/spf13/cobra"
)

var nearestCmd = &cobra.Command{
	Use:   "nearest <image>",
	Short: "List the reference faces closest to the face in an image",
	Long: `Embed the single face of an image and list the closest reference
embeddings of the trained collection, nearest first.

With DATABASE_URL set the search runs in PostgreSQL (pgvector). Otherwise an
HNSW index over the collection is used, loaded from HNSW_INDEX_PATH when it is
up to date and rebuilt otherwise.

Examples:
  face-tagger nearest unknown.jpg
  face-tagger nearest unknown.jpg --limit 10 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runNearest,
}

func init() {
	rootCmd.AddCommand(nearestCmd)

	nearestCmd.Flags().Int("limit", constants.DefaultNearestLimit, "Number of neighbors to list")
	nearestCmd.Flags().Bool("json", false, "Output as JSON")
}

func runNearest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	limit := mustGetInt(cmd, "limit")
	jsonOutput := mustGetBool(cmd, "json")

	data, err := os.ReadFile(args[0]) //nolint:gosec // path is a user-provided CLI argument
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	client, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	query, err := client.EmbedSingle(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to embed face: %w", err)
	}

	neighbors, err := findNearest(ctx, cfg, query, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(neighbors)
	}
	if len(neighbors) == 0 {
		fmt.Println("No reference faces found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tREFERENCE\tDISTANCE")
	for _, n := range neighbors {
		marker := ""
		if n.Distance <= cfg.Match.Threshold {
			marker = " *"
		}
		fmt.Fprintf(w, "%s\t#%d\t%.4f%s\n", n.Label, n.Position, n.Distance, marker)
	}
	return w.Flush()
}

func findNearest(ctx context.Context, cfg *config.Config, query facematch.Embedding, limit int) ([]database.Neighbor, error) {
	if cfg.Database.URL != "" {
		pool, err := postgres.Initialize(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		defer pool.Close()
		return postgres.NewCollectionRepository(pool).Nearest(ctx, query, limit)
	}

	store, err := database.GetCollectionStore(ctx, cfg.Storage.TrainedPath)
	if err != nil {
		return nil, err
	}
	c, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trained collection: %w", err)
	}

	idx := database.NewReferenceIndex()
	if _, err := idx.LoadOrBuild(cfg.Storage.HNSWIndexPath, c); err != nil {
		return nil, fmt.Errorf("failed to build reference index: %w", err)
	}
	if idx.IsEmpty() {
		return nil, nil
	}
	return idx.Search(query, limit)
}
