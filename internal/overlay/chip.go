package overlay

import (
	"github.com/charmbracelet/lipgloss"
)

// Chip renders a label in its annotation colors for terminal output.
func Chip(a Annotation) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(a.Text.Hex())).
		Background(lipgloss.Color(a.Background.Hex())).
		Padding(0, 1).
		Render(a.Label)
}
