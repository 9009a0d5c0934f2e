package component

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Loader is the busy indicator shown while a fetch is in flight.
type Loader struct {
	spinner spinner.Model
}

// NewLoader creates a Loader.
func NewLoader() Loader {
	return Loader{spinner: spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("12"))),
	)}
}

// Tick starts the animation.
func (l Loader) Tick() tea.Cmd {
	return l.spinner.Tick
}

// Update advances the animation on its own tick messages.
func (l Loader) Update(msg tea.Msg) (Loader, tea.Cmd) {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return l, cmd
}

func (l Loader) View() string {
	return "  " + l.spinner.View() + " Loading..."
}
