package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/digital-twin/internal/cli"
	"github.com/Veraticus/digital-twin/internal/model"
)

// Styles contains the styling used by report formatting.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Warning  lipgloss.Style
	Subtle   lipgloss.Style
	Header   lipgloss.Style
	Normal   lipgloss.Style
	Box      lipgloss.Style
	Panel    lipgloss.Style

	Apply    lipgloss.Style
	High     lipgloss.Style
	Medium   lipgloss.Style
	Neutral  lipgloss.Style
	Negative lipgloss.Style
}

// NewStyles creates a new Styles instance with default styling.
func NewStyles() *Styles {
	s := &Styles{
		Title:    cli.TitleStyle,
		Subtitle: cli.SubtitleStyle,
		Warning:  cli.WarningStyle,
		Subtle:   cli.SubtleStyle,
		Header:   cli.BoldStyle,
		Normal:   lipgloss.NewStyle(),
	}

	s.Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(cli.PrimaryColor).
		Padding(0, 1)

	s.Panel = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(cli.InfoColor).
		Padding(0, 1)

	s.Apply = lipgloss.NewStyle().Bold(true).Foreground(cli.SuccessColor)
	s.High = lipgloss.NewStyle().Foreground(cli.SuccessColor)
	s.Medium = lipgloss.NewStyle().Foreground(cli.InfoColor)
	s.Neutral = lipgloss.NewStyle().Foreground(cli.SubtleColor)
	s.Negative = lipgloss.NewStyle().Foreground(cli.ErrorColor)

	return s
}

// ForResponse returns the style of a twin response.
func (s *Styles) ForResponse(r model.Response) lipgloss.Style {
	switch r {
	case model.ResponseApply:
		return s.Apply
	case model.ResponseHigh:
		return s.High
	case model.ResponseMedium:
		return s.Medium
	case model.ResponseNeutral:
		return s.Neutral
	case model.ResponseNegative:
		return s.Negative
	default:
		return s.Normal
	}
}

// RenderBar renders a horizontal bar for a fraction in [0, 1].
func RenderBar(fraction float64, width int) string {
	if width <= 0 {
		width = 30
	}

	filled := int(float64(width)*fraction + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

var shades = []string{" ", "░", "▒", "▓", "█"}

// shade maps a fraction of the maximum to a block character.
func shade(value, maxValue float64) string {
	if maxValue <= 0 || value <= 0 {
		return shades[0]
	}
	i := int(value / maxValue * float64(len(shades)-1))
	if i < 1 {
		i = 1
	}
	if i >= len(shades) {
		i = len(shades) - 1
	}
	return shades[i]
}
