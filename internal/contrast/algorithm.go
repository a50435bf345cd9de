package contrast

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrUnknownAlgorithm is returned by ParseAlgorithm for unsupported names.
var ErrUnknownAlgorithm = errors.New("unknown contrast algorithm")

// Algorithm names a contrast metric.
type Algorithm string

const (
	APCA      Algorithm = "APCA"
	WCAG21    Algorithm = "WCAG21"
	Michelson Algorithm = "Michelson"
	Weber     Algorithm = "Weber"
	Lstar     Algorithm = "Lstar"
	DeltaPhi  Algorithm = "DeltaPhi"
)

// Algorithms lists every supported metric, default first.
var Algorithms = []Algorithm{APCA, WCAG21, Michelson, Weber, Lstar, DeltaPhi}

// ParseAlgorithm matches name case-insensitively. Empty selects APCA.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return APCA, nil
	}
	for _, a := range Algorithms {
		if strings.EqualFold(name, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// score computes the contrast of text fg on background bg.
// Only APCA is polarity sensitive, the other metrics are symmetric.
func score(a Algorithm, bg, fg colorful.Color) float64 {
	switch a {
	case WCAG21:
		hi, lo := ordered(luminance(bg), luminance(fg))
		return (hi + 0.05) / (lo + 0.05)
	case Michelson:
		hi, lo := ordered(luminance(bg), luminance(fg))
		if hi+lo == 0 {
			return 0
		}
		return (hi - lo) / (hi + lo)
	case Weber:
		hi, lo := ordered(luminance(bg), luminance(fg))
		if lo == 0 {
			return 50000
		}
		return (hi - lo) / lo
	case Lstar:
		l1, _, _ := bg.LabWhiteRef(colorful.D50)
		l2, _, _ := fg.LabWhiteRef(colorful.D50)
		return math.Abs(l1-l2) * 100
	case DeltaPhi:
		return deltaPhi(bg, fg)
	default:
		return apca(bg, fg)
	}
}

// luminance is the CIE Y of a color from linear sRGB.
func luminance(c colorful.Color) float64 {
	r, g, b := c.LinearRgb()
	return 0.2126729*r + 0.7151522*g + 0.0721750*b
}

func ordered(a, b float64) (hi, lo float64) {
	if a >= b {
		return a, b
	}
	return b, a
}

var phi = (1 + math.Sqrt(5)) / 2

func deltaPhi(a, b colorful.Color) float64 {
	l1, _, _ := a.Lab()
	l2, _, _ := b.Lab()
	// colorful works on a 0-1 lightness scale.
	l1, l2 = l1*100, l2*100

	d := math.Abs(math.Pow(l1, phi) - math.Pow(l2, phi))
	c := math.Pow(d, 1/phi)*math.Sqrt2 - 40
	if c < 7.5 {
		return 0
	}
	return c
}

// APCA 0.0.98G-4g constants.
const (
	apcaNormBG     = 0.56
	apcaNormTXT    = 0.57
	apcaRevTXT     = 0.62
	apcaRevBG      = 0.65
	apcaBlkThrs    = 0.022
	apcaBlkClmp    = 1.414
	apcaScaleBoW   = 1.14
	apcaScaleWoB   = 1.14
	apcaLoBoWOff   = 0.027
	apcaLoWoBOff   = 0.027
	apcaDeltaYMin  = 0.0005
	apcaLoClip     = 0.1
	apcaLinearizer = 2.4
)

// apca returns the signed lightness contrast Lc of text on bg.
// Positive for dark text on a light background, negative for the reverse.
func apca(bg, txt colorful.Color) float64 {
	yBg := apcaClamp(apcaY(bg))
	yTxt := apcaClamp(apcaY(txt))

	var c float64
	if math.Abs(yBg-yTxt) >= apcaDeltaYMin {
		if yBg > yTxt {
			c = (math.Pow(yBg, apcaNormBG) - math.Pow(yTxt, apcaNormTXT)) * apcaScaleBoW
		} else {
			c = (math.Pow(yBg, apcaRevBG) - math.Pow(yTxt, apcaRevTXT)) * apcaScaleWoB
		}
	}

	switch {
	case math.Abs(c) < apcaLoClip:
		return 0
	case c > 0:
		return (c - apcaLoBoWOff) * 100
	default:
		return (c + apcaLoWoBOff) * 100
	}
}

// apcaY estimates screen luminance from gamma encoded sRGB with a plain 2.4 exponent.
func apcaY(c colorful.Color) float64 {
	lin := func(v float64) float64 {
		if v < 0 {
			return -math.Pow(-v, apcaLinearizer)
		}
		return math.Pow(v, apcaLinearizer)
	}
	return 0.2126729*lin(c.R) + 0.7151522*lin(c.G) + 0.0721750*lin(c.B)
}

func apcaClamp(y float64) float64 {
	if y >= apcaBlkThrs {
		return y
	}
	return y + math.Pow(apcaBlkThrs-y, apcaBlkClmp)
}
