package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match [file]",
	Short: "Classify a face embedding against the trained collection",
	Long: `Read one embedding as JSON and print the match result as JSON.
The input is either a plain array of numbers or an object with an
"embedding" field. Without a file argument the embedding is read from stdin.

Examples:
  echo '[0.12, -0.04, ...]' | face-tagger match
  face-tagger match query.json --threshold 0.5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var data []byte
	if len(args) == 1 {
		data, err = os.ReadFile(args[0]) //nolint:gosec // path is a user-provided CLI argument
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read embedding: %w", err)
	}

	query, err := parseEmbedding(data)
	if err != nil {
		return err
	}

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
	if err := matcher.CheckDim(query); err != nil {
		return err
	}
	return outputJSON(matcher.Match(query))
}

// parseEmbedding accepts [1, 2, ...] or {"embedding": [1, 2, ...]}.
// Null values are rejected because they cannot be compared.
func parseEmbedding(data []byte) (facematch.Embedding, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty input: expected an embedding")
	}

	var values []*float32
	if data[0] == '{' {
		var wrapped struct {
			Embedding []*float32 `json:"embedding"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("invalid embedding JSON: %w", err)
		}
		values = wrapped.Embedding
	} else if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("invalid embedding JSON: %w", err)
	}

	if len(values) == 0 {
		return nil, errors.New("embedding is empty")
	}
	emb := make(facematch.Embedding, len(values))
	for i, v := range values {
		if v == nil {
			return nil, fmt.Errorf("embedding value %d is null", i)
		}
		emb[i] = *v
	}
	return emb, nil
}
