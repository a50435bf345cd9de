package contrast

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Resolver chooses the more readable text color for a background.
// The zero value uses APCA.
type Resolver struct {
	Algorithm Algorithm
}

// Score returns the raw contrast of text fg on background bg.
func (r Resolver) Score(bg, fg colorful.Color) float64 {
	return score(r.Algorithm, bg, fg)
}

// Resolve returns White or Black, whichever contrasts more with bg.
// Equal magnitudes resolve to White.
func (r Resolver) Resolve(bg colorful.Color) Foreground {
	if r.ResolveAmong(bg, []colorful.Color{White.Color(), Black.Color()}) == 1 {
		return Black
	}
	return White
}

// ResolveAmong returns the index of the candidate with the largest absolute
// contrast against bg. Earlier candidates win ties. Returns -1 for no candidates.
func (r Resolver) ResolveAmong(bg colorful.Color, candidates []colorful.Color) int {
	best, bestScore := -1, math.Inf(-1)
	for i, fg := range candidates {
		s := math.Abs(r.Score(bg, fg))
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
