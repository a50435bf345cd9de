package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/overlay"
	"github.com/kozaktomas/face-tagger/internal/recognize"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize known people in a photo",
	Long: `Detect all faces in an image, match them against the trained collection
and write a copy of the image with a colored box and name tag for every
recognized person.

Examples:
  face-tagger recognize party.jpg
  face-tagger recognize party.jpg --output tagged.png
  face-tagger recognize party.jpg --json --no-image`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().StringP("output", "o", "", "Output image path (default <name>_tagged<ext>)")
	recognizeCmd.Flags().Bool("no-image", false, "Do not write the annotated image")
	recognizeCmd.Flags().Bool("json", false, "Output recognized faces as JSON")
	recognizeCmd.Flags().String("mode", "", "Color mode: detection or label (overrides COLOR_MODE)")
	recognizeCmd.Flags().Int("max-size", -1, "Longest side of the output image, 0 keeps the size (overrides RENDER_MAX_SIZE)")
}

// RecognizeOutput is the JSON output of the recognize command.
type RecognizeOutput struct {
	Image  string           `json:"image"`
	Output string           `json:"output,omitempty"`
	Frame  *recognize.Frame `json:"result"`
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if mode := mustGetString(cmd, "mode"); mode != "" {
		cfg.Colors.Mode = mode
	}
	if maxSize := mustGetInt(cmd, "max-size"); maxSize >= 0 {
		cfg.Render.MaxSize = maxSize
	}
	jsonOutput := mustGetBool(cmd, "json")
	noImage := mustGetBool(cmd, "no-image")

	imagePath := args[0]
	outputPath := mustGetString(cmd, "output")
	if outputPath == "" {
		outputPath = taggedPath(imagePath)
	}

	data, err := os.ReadFile(imagePath) //nolint:gosec // path is a user-provided CLI argument
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	ctx := context.Background()
	pipeline, closeFn, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	frame, err := pipeline.Recognize(ctx, data)
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}

	if noImage {
		outputPath = ""
	} else if err := writeAnnotated(cfg, data, frame, outputPath); err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(RecognizeOutput{Image: imagePath, Output: outputPath, Frame: frame})
	}

	printFrame(frame)
	if outputPath != "" {
		fmt.Printf("Annotated image written to %s\n", outputPath)
	}
	return nil
}

// newPipeline wires the embedder, the trained matcher and the color assigner.
func newPipeline(ctx context.Context, cfg *config.Config) (*recognize.Pipeline, func(), error) {
	client, err := newEmbedder(cfg)
	if err != nil {
		return nil, func() {}, err
	}
	assigner, err := newAssigner(cfg)
	if err != nil {
		return nil, func() {}, err
	}
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	matcher, err := loadMatcher(ctx, cfg, store)
	if err != nil {
		closeStore()
		return nil, func() {}, err
	}
	return recognize.NewPipeline(client, matcher, assigner), closeStore, nil
}

func writeAnnotated(cfg *config.Config, data []byte, frame *recognize.Frame, outputPath string) error {
	img, _, err := overlay.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	img, anns := overlay.Fit(img, cfg.Render.MaxSize, frame.Annotations())
	out := overlay.Draw(img, anns, overlay.Options{
		LineWidth: cfg.Render.LineWidth,
		FontScale: cfg.Render.FontScale,
	})

	f, err := os.Create(outputPath) //nolint:gosec // path is a user-provided CLI argument
	if err != nil {
		return fmt.Errorf("failed to create output image: %w", err)
	}
	if err := overlay.Encode(f, out, outputPath); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode output image: %w", err)
	}
	return f.Close()
}

// taggedPath returns photo_tagged.jpg for photo.jpg.
func taggedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_tagged" + ext
}

func printFrame(frame *recognize.Frame) {
	if len(frame.Faces) == 0 {
		fmt.Println("No faces detected.")
		return
	}

	fmt.Printf("Detected %d faces, recognized %d people\n\n", len(frame.Faces), len(frame.People))
	for _, face := range frame.Faces {
		if face.Match.Known && face.Colors != nil {
			chip := overlay.Chip(overlay.Annotation{
				Label:      face.Match.Label,
				Background: face.Colors.Background,
				Text:       face.Colors.Text,
			})
			fmt.Printf("  #%d %s  distance %.3f\n", face.Index, chip, face.Match.Distance)
		} else {
			fmt.Printf("  #%d %s  distance %.3f\n", face.Index, face.Match.Label, face.Match.Distance)
		}
	}
	if unknown := frame.Unknown(); unknown > 0 {
		fmt.Printf("\n%d faces did not match any label\n", unknown)
	}
}
