// Package component holds the presentational building blocks of the
// terminal client: stock cards, charts, the busy indicator and the symbol
// search box.
package component

import (
	"github.com/charmbracelet/lipgloss"

	"tidder/internal/domain"
)

// Styles.
var (
	GainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	LossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	DimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	ColHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	SymbolStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	PriceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	SectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	HighlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75")).Background(lipgloss.Color("236"))
)

var (
	cardStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	annotationStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	wickStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Polarity is the sign class of a change value.
type Polarity int

const (
	Up Polarity = iota // change >= 0
	Down
)

// PolarityOf classifies a change as displayed, rounded to two decimals;
// zero counts as Up.
func PolarityOf(change float64) Polarity {
	if domain.Round2(change) < 0 {
		return Down
	}
	return Up
}

// ChangeStyle returns the gain or loss style for a change value.
func ChangeStyle(change float64) lipgloss.Style {
	if PolarityOf(change) == Down {
		return LossStyle
	}
	return GainStyle
}

// Section renders a full-width section label.
func Section(title string, width int) string {
	return SectionStyle.Render(PadOrTrunc("  "+title, width))
}
