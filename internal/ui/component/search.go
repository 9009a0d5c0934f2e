package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// MaxResults caps the number of search candidates shown.
const MaxResults = 5

// Filter returns the candidates containing q case-insensitively, in their
// original order, capped at MaxResults. An empty query returns nil (closed);
// a query with no matches returns an empty non-nil slice. Whitespace in q is
// matched like any other character.
func Filter(candidates []string, q string) []string {
	if q == "" {
		return nil
	}
	q = strings.ToLower(q)
	out := []string{}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), q) {
			out = append(out, c)
			if len(out) == MaxResults {
				break
			}
		}
	}
	return out
}

// SelectedMsg is emitted when a search candidate is chosen.
type SelectedMsg struct {
	Symbol string
}

// StockSearch is a text box filtering a fixed symbol list.
type StockSearch struct {
	input      textinput.Model
	candidates []string
	results    []string
	cursor     int
}

// NewStockSearch creates a search over candidates.
func NewStockSearch(candidates []string) StockSearch {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "symbol"
	ti.CharLimit = 32
	return StockSearch{input: ti, candidates: candidates}
}

// SetCandidates replaces the candidate list.
func (s *StockSearch) SetCandidates(candidates []string) {
	s.candidates = candidates
	s.refresh()
}

// Candidates returns the candidate list.
func (s StockSearch) Candidates() []string { return s.candidates }

// Focus opens the search box for typing.
func (s *StockSearch) Focus() tea.Cmd { return s.input.Focus() }

// Focused reports whether the box takes key input.
func (s StockSearch) Focused() bool { return s.input.Focused() }

// SetQuery replaces the query text.
func (s *StockSearch) SetQuery(q string) {
	s.input.SetValue(q)
	s.refresh()
}

// Query returns the current query text.
func (s StockSearch) Query() string { return s.input.Value() }

// Results returns the current candidates; nil when closed.
func (s StockSearch) Results() []string { return s.results }

func (s *StockSearch) refresh() {
	s.results = Filter(s.candidates, s.input.Value())
	s.cursor = 0
}

// Update handles keys while focused: up/down move the highlight, enter
// selects, esc clears and closes.
func (s *StockSearch) Update(msg tea.Msg) tea.Cmd {
	if !s.input.Focused() {
		return nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "up":
			if s.cursor > 0 {
				s.cursor--
			}
			return nil
		case "down":
			if s.cursor < len(s.results)-1 {
				s.cursor++
			}
			return nil
		case "enter":
			if len(s.results) == 0 {
				return nil
			}
			sym := s.results[s.cursor]
			s.SetQuery("")
			s.input.Blur()
			return func() tea.Msg { return SelectedMsg{Symbol: sym} }
		case "esc":
			s.SetQuery("")
			s.input.Blur()
			return nil
		}
	}

	prev := s.input.Value()
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	if s.input.Value() != prev {
		s.refresh()
	}
	return cmd
}

func (s StockSearch) View() string {
	if !s.input.Focused() {
		return DimStyle.Render("  / search symbols")
	}
	var b strings.Builder
	b.WriteString("  " + s.input.View())
	switch {
	case s.results == nil:
	case len(s.results) == 0:
		b.WriteString("\n" + DimStyle.Render("    No matching symbols"))
	default:
		for i, r := range s.results {
			b.WriteString("\n")
			if i == s.cursor {
				b.WriteString(HighlightStyle.Render("  > " + r + " "))
			} else {
				b.WriteString("    " + r)
			}
		}
	}
	return b.String()
}
