package formatter

import (
	"github.com/charmbracelet/lipgloss"

	"bizdash/internal/optimistic"
)

var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorDim    = lipgloss.Color("#928374")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
)

// Outcome renders a mutation outcome, green when the backend accepted it.
func Outcome(o optimistic.Outcome) string {
	switch {
	case o.Success():
		return StyleGreen.Render(string(o))
	case o == optimistic.Skipped:
		return StyleDim.Render(string(o))
	case o == optimistic.ReauthRequired:
		return StyleYellow.Render(string(o))
	default:
		return StyleRed.Render(string(o))
	}
}

// Check renders a boolean column.
func Check(b bool) string {
	if b {
		return "yes"
	}
	return StyleDim.Render("-")
}

// Dim renders text in the muted color.
func Dim(text string) string {
	return StyleDim.Render(text)
}
