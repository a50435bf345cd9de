// Package overlay draws identification boxes and labels onto photos.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-tagger/internal/constants"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

const labelPadding = 2

// Annotation is one labeled box to draw.
type Annotation struct {
	BBox       []float64 // [x1, y1, x2, y2] in pixels
	Label      string
	Background colorful.Color
	Text       colorful.Color
}

// Options controls how annotations are drawn.
type Options struct {
	LineWidth int
	FontScale int
	MaxSize   int // longest side after Fit, 0 keeps the size
}

// Decode decodes JPEG, PNG, GIF, BMP or WebP data.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Fit downscales img so its longest side is at most maxSize and moves the
// annotation boxes along. Images that already fit are returned unchanged.
func Fit(img image.Image, maxSize int, anns []Annotation) (image.Image, []Annotation) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return img, anns
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = max(1, height*maxSize/width)
	} else {
		newHeight = maxSize
		newWidth = max(1, width*maxSize/height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	scaled := make([]Annotation, len(anns))
	for i, a := range anns {
		a.BBox = facematch.ScaleBBox(a.BBox, width, height, newWidth, newHeight)
		scaled[i] = a
	}
	return dst, scaled
}

// Draw returns a copy of img with every annotation drawn on it: a box
// outline in the background color and the label on a filled tag above it.
func Draw(img image.Image, anns []Annotation, opts Options) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	lineWidth := max(opts.LineWidth, 1)
	scale := max(opts.FontScale, 1)
	for _, a := range anns {
		drawAnnotation(dst, a, lineWidth, scale)
	}
	return dst
}

func drawAnnotation(dst *image.RGBA, a Annotation, lineWidth, scale int) {
	if len(a.BBox) != 4 {
		return
	}
	b := facematch.ClampBBox(a.BBox, dst.Bounds().Dx(), dst.Bounds().Dy())
	if b[2] <= b[0] || b[3] <= b[1] {
		return
	}
	r := image.Rect(int(b[0]), int(b[1]), int(b[2]), int(b[3]))

	bg := image.NewUniform(a.Background)
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+lineWidth), // top
		image.Rect(r.Min.X, r.Max.Y-lineWidth, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+lineWidth, r.Max.Y), // left
		image.Rect(r.Max.X-lineWidth, r.Min.Y, r.Max.X, r.Max.Y), // right
	} {
		draw.Draw(dst, edge.Intersect(r), bg, image.Point{}, draw.Src)
	}

	if a.Label == "" {
		return
	}
	tag := renderLabel(a.Label, a.Background, a.Text, scale)
	at := image.Pt(r.Min.X, r.Min.Y-tag.Bounds().Dy())
	if at.Y < 0 {
		at.Y = r.Min.Y // no room above, tag goes inside the box
	}
	draw.Draw(dst, tag.Bounds().Add(at), tag, image.Point{}, draw.Over)
}

// renderLabel draws text on a filled tag and scales it up with nearest
// neighbor so the bitmap font stays sharp.
func renderLabel(text string, bg, fg color.Color, scale int) *image.RGBA {
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil() + 2*labelPadding
	h := face.Height + 2

	tag := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(tag, tag.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	d := font.Drawer{
		Dst:  tag,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(labelPadding, face.Ascent+1),
	}
	d.DrawString(text)

	if scale <= 1 {
		return tag
	}
	big := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	draw.NearestNeighbor.Scale(big, big.Bounds(), tag, tag.Bounds(), draw.Src, nil)
	return big
}

// Encode writes img as PNG when name ends in .png and as JPEG otherwise.
func Encode(w io.Writer, img image.Image, name string) error {
	if strings.EqualFold(filepath.Ext(name), ".png") {
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
		return nil
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return nil
}
