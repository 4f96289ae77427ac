package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jionychiow/cmss/internal/registry"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatePill renders the reference-data load state.
func StatePill(state registry.State) string {
	switch state {
	case registry.StateReady:
		return StyleGreen.Render("● ready")
	case registry.StateLoading:
		return StyleYellow.Render("◌ loading")
	case registry.StateFailed:
		return StyleRed.Render("✖ failed")
	default:
		return StyleDim.Render("○ not loaded")
	}
}

// statusStyles colors enum codes that describe progress or health. Codes
// not listed render in the foreground color.
var statusStyles = map[string]lipgloss.Style{
	"pending":           StyleYellow,
	"in_progress":       StyleBlue,
	"completed":         StyleGreen,
	"cancelled":         StyleDim,
	"Active":            StyleGreen,
	"Inactive":          StyleDim,
	"Under Maintenance": StyleYellow,
	"Retired":           StyleRed,
}

// EnumPill renders an enum label colored by its code.
func EnumPill(code, label string) string {
	if label == "" {
		label = code
	}
	if style, ok := statusStyles[code]; ok {
		return style.Render(label)
	}
	return StyleFg.Render(label)
}

// Header renders a section header with the orange header style and an
// underline as wide as the text is on screen.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
