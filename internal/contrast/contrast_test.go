package contrast

import (
	"errors"
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	black = colorful.Color{R: 0, G: 0, B: 0}
	white = colorful.Color{R: 1, G: 1, B: 1}
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantHex string
	}{
		{"long hex", "#ff8000", "#ff8000"},
		{"upper hex", "#FF8000", "#ff8000"},
		{"short hex", "#f80", "#ff8800"},
		{"rgb function", "rgb(255, 128, 0)", "#ff8000"},
		{"rgb function no spaces", "rgb(0,0,255)", "#0000ff"},
		{"triple", "12, 34, 56", "#0c2238"},
		{"named", "tomato", "#ff6347"},
		{"named mixed case", "  DarkSlateGray ", "#2f4f4f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if c.Hex() != tt.wantHex {
				t.Errorf("Parse(%q) = %s, want %s", tt.input, c.Hex(), tt.wantHex)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{"", "#12", "#gggggg", "rgb(1,2,3", "1,2", "1,2,300", "-1,0,0", "not-a-color"}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			if _, err := Parse(in); !errors.Is(err, ErrUnknownColor) {
				t.Errorf("Parse(%q) error = %v, want ErrUnknownColor", in, err)
			}
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input string
		want  Algorithm
	}{
		{"", APCA},
		{"apca", APCA},
		{"wcag21", WCAG21},
		{"MICHELSON", Michelson},
		{"weber", Weber},
		{"lstar", Lstar},
		{"deltaphi", DeltaPhi},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if err != nil {
				t.Fatalf("ParseAlgorithm(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseAlgorithm("contrastiness"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestScore_KnownValues(t *testing.T) {
	tests := []struct {
		name   string
		alg    Algorithm
		bg, fg colorful.Color
		want   float64
		tol    float64
	}{
		{"apca black on white", APCA, white, black, 106.04, 0.1},
		{"apca white on black", APCA, black, white, -107.88, 0.1},
		{"apca same color", APCA, white, white, 0, 0},
		{"wcag max", WCAG21, white, black, 21, 0.001},
		{"wcag symmetric", WCAG21, black, white, 21, 0.001},
		{"wcag same color", WCAG21, black, black, 1, 0},
		{"michelson max", Michelson, white, black, 1, 1e-9},
		{"michelson both black", Michelson, black, black, 0, 0},
		{"weber black denominator", Weber, white, black, 50000, 0},
		{"lstar full range", Lstar, white, black, 100, 0.1},
		{"deltaphi full range", DeltaPhi, white, black, 101.42, 0.1},
		{"deltaphi below floor", DeltaPhi, white, white, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolver{Algorithm: tt.alg}.Score(tt.bg, tt.fg)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_Extremes(t *testing.T) {
	for _, alg := range Algorithms {
		t.Run(string(alg), func(t *testing.T) {
			r := Resolver{Algorithm: alg}
			if got := r.Resolve(black); got != White {
				t.Errorf("Resolve(black) = %s, want white", got)
			}
			if got := r.Resolve(white); got != Black {
				t.Errorf("Resolve(white) = %s, want black", got)
			}
		})
	}
}

func TestResolve_Backgrounds(t *testing.T) {
	tests := []struct {
		bg   string
		want Foreground
	}{
		{"yellow", Black},
		{"navy", White},
		{"darkred", White},
		{"lightgreen", Black},
		{"#ffffe0", Black},
	}

	var r Resolver
	for _, tt := range tests {
		t.Run(tt.bg, func(t *testing.T) {
			bg, err := Parse(tt.bg)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := r.Resolve(bg); got != tt.want {
				t.Errorf("Resolve(%s) = %s, want %s", tt.bg, got, tt.want)
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	var r Resolver
	bg := colorful.Color{R: 0.4, G: 0.55, B: 0.3}

	first := r.Resolve(bg)
	for range 100 {
		if got := r.Resolve(bg); got != first {
			t.Fatalf("Resolve() changed from %s to %s", first, got)
		}
	}
}

func TestResolveAmong(t *testing.T) {
	var r Resolver
	gray := colorful.Color{R: 0.5, G: 0.5, B: 0.5}

	if got := r.ResolveAmong(white, []colorful.Color{gray, black, white}); got != 1 {
		t.Errorf("ResolveAmong() = %d, want 1", got)
	}
	if got := r.ResolveAmong(white, nil); got != -1 {
		t.Errorf("ResolveAmong(nil) = %d, want -1", got)
	}
	// identical candidates tie, the first one wins
	if got := r.ResolveAmong(white, []colorful.Color{black, black}); got != 0 {
		t.Errorf("ResolveAmong() tie = %d, want 0", got)
	}
}
