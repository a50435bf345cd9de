package palette

import (
	"errors"
	"image/color"
	"sync"
	"testing"

	"github.com/kozaktomas/face-tagger/internal/contrast"
	"github.com/lucasb-eyer/go-colorful"
)

func testColors(n int) []colorful.Color {
	colors := make([]colorful.Color, n)
	for i := range colors {
		colors[i] = colorful.Color{R: float64(i) / float64(n), G: 0.5, B: 0.25}
	}
	return colors
}

func TestFromTable(t *testing.T) {
	table := map[string]color.RGBA{
		"zeta":  {R: 1, G: 2, B: 3, A: 255},
		"alpha": {R: 10, G: 20, B: 30, A: 255},
		"gray":  {R: 128, G: 128, B: 128, A: 255},
		"grey":  {R: 128, G: 128, B: 128, A: 255},
	}

	colors := FromTable(table)

	if len(colors) != 3 {
		t.Fatalf("expected 3 distinct colors, got %d", len(colors))
	}
	want := []string{"#0a141e", "#808080", "#010203"}
	for i, c := range colors {
		if c.Hex() != want[i] {
			t.Errorf("color %d = %s, want %s", i, c.Hex(), want[i])
		}
	}
}

func TestDefault(t *testing.T) {
	colors := Default()
	if len(colors) < 100 {
		t.Fatalf("expected the CSS named colors, got %d", len(colors))
	}

	seen := make(map[colorful.Color]bool)
	for _, c := range colors {
		if seen[c] {
			t.Errorf("duplicate color %s", c.Hex())
		}
		seen[c] = true
	}
}

func TestNewCycle_Empty(t *testing.T) {
	if _, err := NewCycle(nil, NewRand(1)); !errors.Is(err, ErrEmptyPalette) {
		t.Errorf("expected ErrEmptyPalette, got %v", err)
	}
}

func TestCycle_DistinctAndWraps(t *testing.T) {
	const n = 12
	cycle, err := NewCycle(testColors(n), NewRand(42))
	if err != nil {
		t.Fatalf("NewCycle() error = %v", err)
	}

	seen := make(map[colorful.Color]bool)
	for i := range n {
		seen[cycle.ColorFor(i)] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d distinct colors, got %d", n, len(seen))
	}

	for i := range n {
		if cycle.ColorFor(i+n) != cycle.ColorFor(i) {
			t.Errorf("ColorFor(%d) != ColorFor(%d)", i+n, i)
		}
		if cycle.ColorFor(i-n) != cycle.ColorFor(i) {
			t.Errorf("ColorFor(%d) != ColorFor(%d)", i-n, i)
		}
	}
}

func TestNewCycle_DoesNotMutateInput(t *testing.T) {
	colors := testColors(20)
	orig := make([]colorful.Color, len(colors))
	copy(orig, colors)

	if _, err := NewCycle(colors, NewRand(7)); err != nil {
		t.Fatalf("NewCycle() error = %v", err)
	}
	for i := range colors {
		if colors[i] != orig[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
}

func TestNewCycle_SeedIsReproducible(t *testing.T) {
	a, _ := NewCycle(Default(), NewRand(99))
	b, _ := NewCycle(Default(), NewRand(99))

	for i := range a.Len() {
		if a.ColorFor(i) != b.ColorFor(i) {
			t.Fatalf("same seed produced different order at slot %d", i)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"", ModeDetection},
		{"detection", ModeDetection},
		{"Label", ModeLabel},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.input)
		if err != nil || got != tt.want {
			t.Errorf("ParseMode(%q) = %s, %v, want %s", tt.input, got, err, tt.want)
		}
	}

	if _, err := ParseMode("rainbow"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestAssigner_DetectionMode(t *testing.T) {
	cycle, _ := NewCycle(testColors(5), NewRand(3))
	// empty mode behaves as detection mode
	a := NewAssigner(cycle, contrast.Resolver{}, "")

	// the same label in different slots gets the slot's color
	first := a.Assign(0, "alice")
	second := a.Assign(1, "alice")
	if first.Background != cycle.ColorFor(0) || second.Background != cycle.ColorFor(1) {
		t.Errorf("detection mode did not follow slots")
	}
}

func TestAssigner_LabelMode(t *testing.T) {
	cycle, _ := NewCycle(testColors(5), NewRand(3))
	a := NewAssigner(cycle, contrast.Resolver{}, ModeLabel)

	alice := a.Assign(3, "alice")
	bob := a.Assign(0, "bob")
	again := a.Assign(4, "alice")

	if alice.Background != cycle.ColorFor(0) {
		t.Errorf("first label should take slot 0")
	}
	if bob.Background != cycle.ColorFor(1) {
		t.Errorf("second label should take slot 1")
	}
	if again.Background != alice.Background {
		t.Errorf("label color changed between frames")
	}
}

func TestAssigner_TextContrastsWithBackground(t *testing.T) {
	cycle, _ := NewCycle([]colorful.Color{{R: 1, G: 1, B: 1}, {R: 0, G: 0, B: 0}}, NewRand(1))
	a := NewAssigner(cycle, contrast.Resolver{}, ModeDetection)

	for slot := range 2 {
		got := a.Assign(slot, "x")
		want := contrast.White
		if got.Background.Hex() == "#ffffff" {
			want = contrast.Black
		}
		if got.Foreground != want || got.Text != want.Color() {
			t.Errorf("slot %d background %s: text %s, want %s", slot, got.Background.Hex(), got.Foreground, want)
		}
	}
}

func TestAssigner_ConcurrentLabels(t *testing.T) {
	cycle, _ := NewCycle(Default(), NewRand(5))
	a := NewAssigner(cycle, contrast.Resolver{}, ModeLabel)
	labels := []string{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Assign(i, labels[i%len(labels)])
		}()
	}
	wg.Wait()

	seen := make(map[colorful.Color]bool)
	for _, l := range labels {
		seen[a.Assign(0, l).Background] = true
	}
	if len(seen) != len(labels) {
		t.Errorf("expected %d distinct label colors, got %d", len(labels), len(seen))
	}
}

func TestAssignment_MarshalJSON(t *testing.T) {
	data, err := Assignment{
		Background: colorful.Color{R: 1, G: 0, B: 0},
		Text:       contrast.White.Color(),
	}.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	want := `{"background":"#ff0000","text":"#ffffff"}`
	if string(data) != want {
		t.Errorf("MarshalJSON() = %s, want %s", data, want)
	}
}
