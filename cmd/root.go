package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-tagger",
	Short: "Recognize and tag known faces in photos",
	Long: `Face Tagger learns reference faces from a directory of labeled images
and recognizes those people in new photos. Recognized faces are drawn as
colored boxes with a readable name tag.

Reference images are organized one directory per person:
  faces/alice/1.jpg
  faces/bob/portrait.png`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().Float64("threshold", 0, "Maximum mean distance for a known face (overrides MATCH_THRESHOLD)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
