package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/kozaktomas/face-tagger/internal/recognize"
	"github.com/kozaktomas/face-tagger/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web API",
	Long: `Start the Face Tagger HTTP API.
The API recognizes faces in uploaded photos, matches raw embeddings, resolves
label colors and runs training jobs in the background. The server starts
without a trained collection, recognition becomes available once training
has finished.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// loadServedMatcher returns nil without error when nothing was trained yet.
func loadServedMatcher(ctx context.Context, cfg *config.Config, store database.CollectionStore) (*facematch.Matcher, error) {
	matcher, err := loadMatcher(ctx, cfg, store)
	if errors.Is(err, database.ErrNotTrained) {
		fmt.Println("No trained collection yet, recognition is disabled until training completes")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	fmt.Printf("Loaded %d labels (threshold %.2f)\n", len(matcher.Labels()), cfg.Match.Threshold)
	return matcher, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.URL != "" {
		fmt.Printf("Connecting to PostgreSQL database...\n")
	}
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	if database.IsInitialized() {
		fmt.Printf("Using PostgreSQL backend\n")
	} else {
		fmt.Printf("Using JSON file storage at %s\n", cfg.Storage.TrainedPath)
	}

	client, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	assigner, err := newAssigner(cfg)
	if err != nil {
		return err
	}
	matcher, err := loadServedMatcher(ctx, cfg, store)
	if err != nil {
		return err
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, web.Services{
		Pipeline: recognize.NewPipeline(client, matcher, assigner),
		Embedder: client,
		Store:    store,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Tagger API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
