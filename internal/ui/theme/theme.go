package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/finwell/internal/scoring"
)

// Color palette, calm and legible on dark and light terminals.
var (
	Primary   = lipgloss.Color("#6366F1") // Indigo
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Success   = lipgloss.Color("#22C55E") // Green
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Caution   = lipgloss.Color("#F97316") // Orange
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#E2E8F0") // Slate light
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Label = lipgloss.NewStyle().
		Width(22)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 2)
)

// States
var (
	Ok = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Failed = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Foreground(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Foreground(Border)
)

// BandColor maps an interpretation band to its color.
func BandColor(b scoring.Band) color.Color {
	switch b {
	case scoring.BandExcellent:
		return Success
	case scoring.BandGood:
		return Secondary
	case scoring.BandNeedsImprovement:
		return Warning
	case scoring.BandAtRisk:
		return Error
	default:
		return TextDim
	}
}

// Band returns the bold style for an interpretation band.
func Band(b scoring.Band) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(BandColor(b))
}
