package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// CardWidth is the outer width of a rendered StockCard.
const CardWidth = 24

// StockCard shows a titled value, an optional percent change with polarity
// styling and an optional annotation.
type StockCard struct {
	Title      string
	Value      any      // float64, *float64, int64, string or nil
	Change     *float64 // percent; nil hides the change line
	Annotation string
}

// Polarity reports the polarity of the card's change, if it has one.
func (c StockCard) Polarity() (Polarity, bool) {
	if c.Change == nil {
		return Up, false
	}
	return PolarityOf(*c.Change), true
}

// View renders the card as a bordered box.
func (c StockCard) View() string {
	inner := CardWidth - 4
	lines := []string{
		SymbolStyle.Render(PadOrTrunc(c.Title, inner)),
		PriceStyle.Render(PadOrTrunc(FormatValue(c.Value), inner)),
	}
	if c.Change != nil {
		lines = append(lines, ChangeStyle(*c.Change).Render(PadOrTrunc(FormatChange(*c.Change), inner)))
	}
	if c.Annotation != "" {
		for _, l := range wrap(c.Annotation, inner) {
			lines = append(lines, annotationStyle.Render(PadOrTrunc(l, inner)))
		}
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

// Grid lays cards out left to right, wrapping to fit width.
func Grid(cards []StockCard, width int) string {
	if len(cards) == 0 {
		return ""
	}
	cols := max(1, width/(CardWidth+1))
	var rows []string
	for i := 0; i < len(cards); i += cols {
		end := min(i+cols, len(cards))
		views := make([]string, 0, end-i)
		for _, c := range cards[i:end] {
			views = append(views, c.View())
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, views...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// wrap breaks s into lines of at most width runes on word boundaries.
func wrap(s string, width int) []string {
	var lines []string
	var cur string
	for _, w := range strings.Fields(s) {
		switch {
		case cur == "":
			cur = w
		case len([]rune(cur))+1+len([]rune(w)) <= width:
			cur += " " + w
		default:
			lines = append(lines, cur)
			cur = w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}
