// Package training builds a labeled embedding collection from a directory of
// reference photos, one subdirectory per label.
package training

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kozaktomas/face-tagger/internal/facematch"
)

// DefaultExtensions are the image extensions considered during training.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg"}

// DiscoverLabels returns the names of the subdirectories of root, sorted.
// Hidden directories are ignored. A missing root yields no labels.
func DiscoverLabels(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read training root: %w", err)
	}

	var labels []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		labels = append(labels, e.Name())
	}
	slices.Sort(labels)
	return labels, nil
}

// AmbiguousLabels groups labels that normalize to the same lookup key,
// e.g. "jan_novak" and "Jan-Novák". Groups are ordered by their first label.
func AmbiguousLabels(labels []string) [][]string {
	byKey := make(map[string][]string)
	var keys []string
	for _, label := range labels {
		key := facematch.NormalizeLabel(label)
		if _, ok := byKey[key]; !ok {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], label)
	}

	var groups [][]string
	for _, key := range keys {
		if len(byKey[key]) > 1 {
			groups = append(groups, byKey[key])
		}
	}
	return groups
}

// ListImages returns the absolute paths of files in dir whose extension is in
// exts (case-insensitive), sorted. Empty exts uses DefaultExtensions.
func ListImages(dir string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() || !hasExtension(e.Name(), exts) {
			continue
		}
		images = append(images, filepath.Join(abs, e.Name()))
	}
	slices.Sort(images)
	return images, nil
}

func hasExtension(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, want := range exts {
		if !strings.HasPrefix(want, ".") {
			want = "." + want
		}
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
