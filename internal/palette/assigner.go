package palette

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kozaktomas/face-tagger/internal/contrast"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrUnknownMode is returned by ParseMode for unsupported modes.
var ErrUnknownMode = errors.New("unknown color mode")

// Mode selects how slots are derived.
type Mode string

const (
	// ModeDetection colors faces by their order in the frame.
	ModeDetection Mode = "detection"
	// ModeLabel gives every label its own color for the whole session.
	ModeLabel Mode = "label"
)

// ParseMode parses a mode name. Empty selects ModeDetection.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDetection:
		return ModeDetection, nil
	case ModeLabel:
		return ModeLabel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Assignment is the color pair used to draw one label.
type Assignment struct {
	Background colorful.Color
	Text       colorful.Color
	Foreground contrast.Foreground
}

// MarshalJSON writes colors as hex strings.
func (a Assignment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Background string `json:"background"`
		Text       string `json:"text"`
	}{a.Background.Hex(), a.Text.Hex()})
}

// Assigner couples a Cycle with a contrast resolver.
// It is safe for concurrent use.
type Assigner struct {
	cycle    *Cycle
	resolver contrast.Resolver
	mode     Mode

	mu     sync.Mutex
	labels map[string]int
}

// NewAssigner creates an assigner. An empty mode selects ModeDetection.
func NewAssigner(cycle *Cycle, resolver contrast.Resolver, mode Mode) *Assigner {
	if mode == "" {
		mode = ModeDetection
	}
	return &Assigner{
		cycle:    cycle,
		resolver: resolver,
		mode:     mode,
		labels:   make(map[string]int),
	}
}

// Assign returns the colors for a face. In detection mode slot is used as is,
// in label mode the label's first-seen order is used instead.
func (a *Assigner) Assign(slot int, label string) Assignment {
	if a.mode == ModeLabel {
		slot = a.labelSlot(label)
	}
	return a.ForSlot(slot)
}

// ForSlot returns the colors for a raw slot.
func (a *Assigner) ForSlot(slot int) Assignment {
	bg := a.cycle.ColorFor(slot)
	fg := a.resolver.Resolve(bg)
	return Assignment{Background: bg, Text: fg.Color(), Foreground: fg}
}

func (a *Assigner) labelSlot(label string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if slot, ok := a.labels[label]; ok {
		return slot
	}
	slot := len(a.labels)
	a.labels[label] = slot
	return slot
}
