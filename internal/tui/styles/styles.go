// Package styles provides shared lipgloss styles for the terminal views.
package styles

import "github.com/charmbracelet/lipgloss"

// Color palette using ANSI colors for broad terminal compatibility.
var (
	Primary   = lipgloss.Color("4")   // Blue
	Secondary = lipgloss.Color("245") // Light gray (visible on dark backgrounds)
	Success   = lipgloss.Color("2")   // Green
	Warning   = lipgloss.Color("3")   // Yellow
	Error     = lipgloss.Color("1")   // Red
	Highlight = lipgloss.Color("12")  // Bright blue
	Muted     = lipgloss.Color("245") // Light gray (visible on dark backgrounds)

	// ChipInk is the text color on the light chip backgrounds of the palette.
	ChipInk = lipgloss.Color("#111827")
)

// Text styles.
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("7")).
		Bold(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningText = lipgloss.NewStyle().
			Foreground(Warning)

	SuccessText = lipgloss.NewStyle().
			Foreground(Success)

	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	HelpText = lipgloss.NewStyle().
			Foreground(Secondary).
			Italic(true)
)

// Panel styles. The focused variant only changes the border color so both
// render at the same size.
var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Secondary)

	FocusedPanel = Panel.
			BorderForeground(Highlight)

	PanelTitle = lipgloss.NewStyle().
			Foreground(Highlight).
			Bold(true)
)

// Chip returns the style of one token chip. Selected chips get a thick
// border in the highlight color.
func Chip(background, border string, selected bool) lipgloss.Style {
	s := lipgloss.NewStyle().
		Background(lipgloss.Color(background)).
		Foreground(ChipInk).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border))
	if selected {
		s = s.Border(lipgloss.ThickBorder()).
			BorderForeground(Highlight).
			Bold(true)
	}
	return s
}

// FlatChip is used when rows are too short for a border.
func FlatChip(background string, selected bool) lipgloss.Style {
	s := lipgloss.NewStyle().
		Background(lipgloss.Color(background)).
		Foreground(ChipInk)
	if selected {
		s = s.Underline(true).Bold(true)
	}
	return s
}

// Indicators.
const (
	Ellipsis        = "…"
	CursorIndicator = "▸"
	Separator       = " · "
)
