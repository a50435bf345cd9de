// Package contrast picks readable text colors for label backgrounds.
package contrast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ErrUnknownColor is returned when a color string cannot be parsed.
var ErrUnknownColor = errors.New("unknown color")

// Foreground is one of the two text colors the resolver chooses between.
type Foreground string

const (
	White Foreground = "white"
	Black Foreground = "black"
)

// Color returns the sRGB value of the foreground.
func (f Foreground) Color() colorful.Color {
	if f == Black {
		return colorful.Color{R: 0, G: 0, B: 0}
	}
	return colorful.Color{R: 1, G: 1, B: 1}
}

// Parse accepts "#rgb", "#rrggbb", "rgb(r, g, b)", "r,g,b" and CSS color names.
func Parse(s string) (colorful.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return colorful.Color{}, fmt.Errorf("%w: empty string", ErrUnknownColor)
	}

	if strings.HasPrefix(s, "#") {
		if len(s) != 4 && len(s) != 7 {
			return colorful.Color{}, fmt.Errorf("%w: %q", ErrUnknownColor, s)
		}
		c, err := colorful.Hex(s)
		if err != nil {
			return colorful.Color{}, fmt.Errorf("%w: %q: %v", ErrUnknownColor, s, err)
		}
		return c, nil
	}

	if inner, ok := strings.CutPrefix(s, "rgb("); ok {
		inner, ok = strings.CutSuffix(inner, ")")
		if !ok {
			return colorful.Color{}, fmt.Errorf("%w: %q", ErrUnknownColor, s)
		}
		return parseTriple(inner)
	}

	if strings.Contains(s, ",") {
		return parseTriple(s)
	}

	if rgba, ok := colornames.Map[s]; ok {
		c, _ := colorful.MakeColor(rgba)
		return c, nil
	}

	return colorful.Color{}, fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

func parseTriple(s string) (colorful.Color, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return colorful.Color{}, fmt.Errorf("%w: %q: expected 3 components", ErrUnknownColor, s)
	}

	var v [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return colorful.Color{}, fmt.Errorf("%w: %q: component %d out of range", ErrUnknownColor, s, i)
		}
		v[i] = uint8(n)
	}
	return colorful.Color{
		R: float64(v[0]) / 255,
		G: float64(v[1]) / 255,
		B: float64(v[2]) / 255,
	}, nil
}
