package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/kozaktomas/face-tagger/internal/training"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train [root]",
	Short: "Learn reference faces from a directory of labeled images",
	Long: `Train computes a face embedding for every reference image and stores the
resulting collection. Each subdirectory of root is one label. Images without
exactly one detectable face are skipped.

The collection replaces the previous one in PostgreSQL when DATABASE_URL is
set, otherwise it is written to TRAINED_PATH.

Examples:
  face-tagger train
  face-tagger train ./faces --concurrency 8
  face-tagger train ./faces --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().Int("concurrency", 0, "Number of images embedded in parallel (default from TRAINING_CONCURRENCY)")
	trainCmd.Flags().StringSlice("ext", nil, "Image extensions to include (default from TRAINING_EXTENSIONS)")
	trainCmd.Flags().Bool("json", false, "Output summary as JSON")
	trainCmd.Flags().Bool("index", false, "Build the reference HNSW index at HNSW_INDEX_PATH after training")
}

// TrainResult is the JSON summary of a training run.
type TrainResult struct {
	Success    bool                    `json:"success"`
	Root       string                  `json:"root"`
	Labels     []string                `json:"labels"`
	Embeddings int                     `json:"embeddings"`
	Images     int                     `json:"images"`
	Skipped    []training.SkippedImage `json:"skipped"`
	Failed     []string                `json:"failed_labels"`
	Ambiguous  [][]string              `json:"ambiguous_labels,omitempty"`
	RunID      string                  `json:"run_id,omitempty"`
	DurationMs int64                   `json:"duration_ms"`
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	root := cfg.Training.Root
	if len(args) == 1 {
		root = args[0]
	}
	if c := mustGetInt(cmd, "concurrency"); c > 0 {
		cfg.Training.Concurrency = c
	}
	if exts := mustGetStringSlice(cmd, "ext"); len(exts) > 0 {
		cfg.Training.Extensions = exts
	}
	jsonOutput := mustGetBool(cmd, "json")
	buildIndex := mustGetBool(cmd, "index")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	total, err := countImages(root, cfg.Training.Extensions)
	if err != nil {
		return err
	}
	if !jsonOutput {
		fmt.Printf("Found %d reference images in %s\n\n", total, root)
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Embedding faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	trainer := training.NewTrainer(client, training.Options{
		Extensions:  cfg.Training.Extensions,
		Concurrency: cfg.Training.Concurrency,
		OnProgress: func(p training.Progress) {
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	})

	report, err := trainer.Train(ctx, root)
	if bar != nil {
		fmt.Println()
	}
	if err != nil {
		if report != nil && !jsonOutput {
			printSkipped(report)
		}
		return fmt.Errorf("training failed: %w", err)
	}

	// validate before overwriting the stored collection
	if _, err := facematch.NewMatcher(report.Collection, facematch.MatcherConfig{
		Threshold: cfg.Match.Threshold,
		Dim:       cfg.Match.Dim,
	}); err != nil {
		return fmt.Errorf("invalid collection: %w", err)
	}
	if err := store.Save(ctx, report.Collection); err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}

	result := TrainResult{
		Success:    true,
		Root:       root,
		Labels:     report.Collection.Labels(),
		Embeddings: report.Collection.EmbeddingCount(),
		Images:     report.Images,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
		Ambiguous:  report.Ambiguous,
		DurationMs: report.Duration.Milliseconds(),
	}
	result.RunID = recordRun(ctx, root, report)

	if buildIndex {
		buildReferenceIndex(cfg, report.Collection, jsonOutput)
	}

	if jsonOutput {
		return outputJSON(result)
	}

	printSkipped(report)
	fmt.Printf("\nTrained %d labels with %d embeddings from %d images in %s\n",
		len(result.Labels), result.Embeddings, result.Images, report.Duration.Round(time.Millisecond))
	if len(report.Failed) > 0 {
		fmt.Printf("Labels without any usable face: %v\n", report.Failed)
	}
	for _, group := range report.Ambiguous {
		fmt.Printf("Labels %v normalize to the same name, lookups return only %s\n", group, group[0])
	}
	if fs, ok := store.(*database.FileStore); ok {
		fmt.Printf("Collection saved to %s\n", fs.Path())
	} else {
		fmt.Println("Collection saved to PostgreSQL")
	}
	return nil
}

// countImages counts the images training will visit, for the progress bar.
func countImages(root string, exts []string) (int, error) {
	labels, err := training.DiscoverLabels(root)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, label := range labels {
		images, err := training.ListImages(filepath.Join(root, label), exts)
		if err != nil {
			return 0, err
		}
		total += len(images)
	}
	return total, nil
}

func printSkipped(report *training.Report) {
	if len(report.Skipped) == 0 {
		return
	}
	fmt.Printf("Skipped %d images:\n", len(report.Skipped))
	for _, s := range report.Skipped {
		fmt.Printf("  %s: %s (%s)\n", s.Label, s.Path, s.Reason)
	}
}

// recordRun stores the run history when PostgreSQL is configured and returns the run ID.
func recordRun(ctx context.Context, root string, report *training.Report) string {
	recorder, err := database.GetTrainingRunRecorder(ctx)
	if err != nil {
		return ""
	}
	run := &database.TrainingRun{
		Root:         root,
		Labels:       len(report.Collection),
		Embeddings:   report.Collection.EmbeddingCount(),
		Images:       report.Images,
		Skipped:      len(report.Skipped),
		FailedLabels: report.Failed,
		Duration:     report.Duration,
	}
	if err := recorder.RecordRun(ctx, run); err != nil {
		log.Printf("WARNING: failed to record training run: %v", err)
		return ""
	}
	return run.ID.String()
}

// buildReferenceIndex rebuilds the persisted HNSW index for the new collection.
func buildReferenceIndex(cfg *config.Config, c facematch.Collection, quiet bool) {
	if cfg.Storage.HNSWIndexPath == "" {
		log.Printf("WARNING: --index requires HNSW_INDEX_PATH, skipping index build")
		return
	}
	idx := database.NewReferenceIndex()
	if _, err := idx.LoadOrBuild(cfg.Storage.HNSWIndexPath, c); err != nil {
		log.Printf("WARNING: failed to build reference index: %v", err)
		return
	}
	if !quiet {
		fmt.Printf("Reference HNSW index built with %d faces (persisted to %s)\n", idx.Count(), cfg.Storage.HNSWIndexPath)
	}
}
