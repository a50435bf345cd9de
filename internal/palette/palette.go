// Package palette hands out label background colors from a shuffled cycle.
package palette

import (
	"errors"
	"image/color"
	"math/rand/v2"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ErrEmptyPalette is returned when a cycle is built from no colors.
var ErrEmptyPalette = errors.New("palette is empty")

// FromTable returns the distinct colors of a named-color table.
// Names are only used to fix the base order before shuffling.
func FromTable(table map[string]color.RGBA) []colorful.Color {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	slices.Sort(names)

	seen := make(map[color.RGBA]bool, len(names))
	colors := make([]colorful.Color, 0, len(names))
	for _, name := range names {
		rgba := table[name]
		if seen[rgba] {
			continue
		}
		seen[rgba] = true
		c, _ := colorful.MakeColor(rgba)
		colors = append(colors, c)
	}
	return colors
}

// Default returns the CSS named colors.
func Default() []colorful.Color {
	return FromTable(colornames.Map)
}

// NewRand returns a generator for seed, or a randomly seeded one when seed is 0.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// Cycle is a fixed, shuffled sequence of colors addressed by slot.
type Cycle struct {
	colors []colorful.Color
}

// NewCycle copies colors and shuffles them with rng (Fisher-Yates).
// A nil rng uses a random seed.
func NewCycle(colors []colorful.Color, rng *rand.Rand) (*Cycle, error) {
	if len(colors) == 0 {
		return nil, ErrEmptyPalette
	}
	if rng == nil {
		rng = NewRand(0)
	}

	shuffled := slices.Clone(colors)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return &Cycle{colors: shuffled}, nil
}

// Len returns the number of colors before the cycle repeats.
func (c *Cycle) Len() int {
	return len(c.colors)
}

// ColorFor returns the color for slot, wrapping modulo Len. Negative slots wrap too.
func (c *Cycle) ColorFor(slot int) colorful.Color {
	n := len(c.colors)
	i := slot % n
	if i < 0 {
		i += n
	}
	return c.colors[i]
}
