package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/spf13/cobra"
)

var labelsCmd = &cobra.Command{
	Use:   "labels [name]...",
	Short: "List the labels of the trained collection",
	Long: `List every trained label with the number of reference embeddings it holds.
Names given as arguments are looked up ignoring case, diacritics, dashes and
underscores, so "jan novak" finds the label "Jan-Novák".

Examples:
  face-tagger labels
  face-tagger labels "jan novak" alice --json`,
	RunE: runLabels,
}

func init() {
	rootCmd.AddCommand(labelsCmd)

	labelsCmd.Flags().Bool("json", false, "Output as JSON")
}

// LabelSummary describes one trained label.
type LabelSummary struct {
	Label      string `json:"label"`
	Embeddings int    `json:"embeddings"`
}

func runLabels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	matcher, err := loadMatcher(ctx, cfg, store)
	if err != nil {
		return err
	}
	summaries, err := selectLabels(matcher.Collection(), args)
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("The trained collection is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tEMBEDDINGS")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\n", s.Label, s.Embeddings)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nTotal: %d labels, threshold %.2f\n", len(summaries), cfg.Match.Threshold)
	return nil
}

// selectLabels summarizes the named labels, or the whole collection when no
// names are given.
func selectLabels(c facematch.Collection, names []string) ([]LabelSummary, error) {
	if len(names) == 0 {
		return summarize(c), nil
	}

	found := make(facematch.Collection, 0, len(names))
	for _, name := range names {
		set, ok := c.Find(name)
		if !ok {
			return nil, fmt.Errorf("label %q not found in the trained collection", name)
		}
		found = append(found, set)
	}
	return summarize(found), nil
}

func summarize(c facematch.Collection) []LabelSummary {
	out := make([]LabelSummary, len(c))
	for i, set := range c {
		out[i] = LabelSummary{Label: set.Label, Embeddings: len(set.Embeddings)}
	}
	return out
}
