package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-tagger/internal/constants"
	"github.com/kozaktomas/face-tagger/internal/contrast"
	"github.com/kozaktomas/face-tagger/internal/overlay"
	"github.com/kozaktomas/face-tagger/internal/palette"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"
)

var contrastCmd = &cobra.Command{
	Use:   "contrast <color>...",
	Short: "Pick white or black text for background colors",
	Long: `Print the more readable text color for each background color.
Colors can be given as #rgb, #rrggbb, rgb(r, g, b), r,g,b or a CSS name.

Examples:
  face-tagger contrast '#ff0000' navy '255,255,0'
  face-tagger contrast teal --algorithm WCAG21`,
	Args: cobra.MinimumNArgs(1),
	RunE: runContrast,
}

var paletteCmd = &cobra.Command{
	Use:   "palette",
	Short: "Preview the shuffled label color cycle",
	Long: `Print the first slots of the label color cycle with the text color chosen
for each of them. The same seed always yields the same order.

Examples:
  face-tagger palette
  face-tagger palette --seed 42 --count 20`,
	Args: cobra.NoArgs,
	RunE: runPalette,
}

func init() {
	rootCmd.AddCommand(contrastCmd)
	rootCmd.AddCommand(paletteCmd)

	contrastCmd.Flags().String("algorithm", "", "Contrast algorithm: APCA, WCAG21, Michelson, Weber, Lstar, DeltaPhi (overrides CONTRAST_ALGORITHM)")
	contrastCmd.Flags().Bool("json", false, "Output as JSON")

	paletteCmd.Flags().Uint64("seed", 0, "Shuffle seed, 0 uses COLOR_SEED")
	paletteCmd.Flags().Int("count", constants.DefaultPalettePreview, "Number of slots to show")
	paletteCmd.Flags().String("algorithm", "", "Contrast algorithm (overrides CONTRAST_ALGORITHM)")
	paletteCmd.Flags().Bool("json", false, "Output as JSON")
}

// ContrastResult is the resolved text color for one background.
type ContrastResult struct {
	Input      string              `json:"input"`
	Background string              `json:"background"`
	Algorithm  contrast.Algorithm  `json:"algorithm"`
	Foreground contrast.Foreground `json:"foreground"`
	White      float64             `json:"white_score"`
	Black      float64             `json:"black_score"`
}

// PaletteSlot is one previewed slot of the color cycle.
type PaletteSlot struct {
	Slot       int    `json:"slot"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

func algorithmFlag(cmd *cobra.Command, fallback string) (contrast.Algorithm, error) {
	name := mustGetString(cmd, "algorithm")
	if name == "" {
		name = fallback
	}
	return contrast.ParseAlgorithm(name)
}

func runContrast(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	algo, err := algorithmFlag(cmd, cfg.Contrast.Algorithm)
	if err != nil {
		return err
	}
	resolver := contrast.Resolver{Algorithm: algo}

	results := make([]ContrastResult, 0, len(args))
	backgrounds := make([]colorful.Color, 0, len(args))
	for _, arg := range args {
		bg, err := contrast.Parse(arg)
		if err != nil {
			return err
		}
		backgrounds = append(backgrounds, bg)
		results = append(results, ContrastResult{
			Input:      arg,
			Background: bg.Hex(),
			Algorithm:  algo,
			Foreground: resolver.Resolve(bg),
			White:      resolver.Score(bg, contrast.White.Color()),
			Black:      resolver.Score(bg, contrast.Black.Color()),
		})
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(results)
	}

	for i, r := range results {
		chip := overlay.Chip(overlay.Annotation{Label: r.Input, Background: backgrounds[i], Text: r.Foreground.Color()})
		fmt.Printf("%s  %s text (%s: white %.1f, black %.1f)\n", chip, r.Foreground, algo, r.White, r.Black)
	}
	return nil
}

func runPalette(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	algo, err := algorithmFlag(cmd, cfg.Contrast.Algorithm)
	if err != nil {
		return err
	}
	seed := cfg.Colors.Seed
	if s := mustGetUint64(cmd, "seed"); s != 0 {
		seed = s
	}
	count := mustGetInt(cmd, "count")
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}

	cycle, err := palette.NewCycle(palette.Default(), palette.NewRand(seed))
	if err != nil {
		return err
	}
	assigner := palette.NewAssigner(cycle, contrast.Resolver{Algorithm: algo}, palette.ModeDetection)

	count = min(count, cycle.Len())
	slots := make([]PaletteSlot, count)
	for i := range slots {
		a := assigner.ForSlot(i)
		slots[i] = PaletteSlot{Slot: i, Background: a.Background.Hex(), Text: a.Text.Hex()}
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(slots)
	}

	fmt.Printf("Palette of %d colors, showing %d (%s)\n\n", cycle.Len(), count, algo)
	for i, s := range slots {
		a := assigner.ForSlot(i)
		fmt.Printf("%3d  %s\n", s.Slot, overlay.Chip(overlay.Annotation{
			Label:      s.Background,
			Background: a.Background,
			Text:       a.Text,
		}))
	}
	return nil
}
