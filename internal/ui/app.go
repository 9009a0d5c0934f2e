// Package ui is the root model of the terminal client. It owns the route
// and the page mounts; pages own their own view state.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tidder/internal/ui/component"
	"tidder/internal/ui/page"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
)

// App is the bubbletea model of the client.
type App struct {
	pages    map[page.ID]page.Page
	route    page.Route
	mount    int
	mounted  bool
	viewport viewport.Model
	ready    bool
	width    int
	height   int
}

// New creates the app over the three standard pages.
func New(src page.DataSource, opts page.Options) *App {
	return NewWithPages(map[page.ID]page.Page{
		page.DashboardPage: page.NewDashboard(src, opts),
		page.SummaryPage:   page.NewMarketSummary(src, opts),
		page.AnalysisPage:  page.NewStockAnalysis(src, opts),
	}, page.Route{Page: page.DashboardPage})
}

// NewWithPages creates an app over the given pages, starting at start.
func NewWithPages(pages map[page.ID]page.Page, start page.Route) *App {
	return &App{pages: pages, route: start}
}

// Route returns the current route.
func (a *App) Route() page.Route { return a.route }

// Mount returns the id of the current page mount.
func (a *App) Mount() int { return a.mount }

func (a *App) active() page.Page { return a.pages[a.route.Page] }

func (a *App) Init() tea.Cmd {
	return a.mountPage(a.route)
}

// navigate moves to r. A symbol change within the analysis page keeps the
// mount; any other change unmounts the old page first.
func (a *App) navigate(r page.Route) tea.Cmd {
	if _, ok := a.pages[r.Page]; !ok {
		return nil
	}
	if a.mounted && r.Page == a.route.Page {
		if r.Symbol == a.route.Symbol {
			return nil
		}
		if sa, ok := a.active().(*page.StockAnalysis); ok {
			a.route = r
			return sa.SetSymbol(r.Symbol)
		}
	}
	if a.mounted {
		a.active().Deactivate()
	}
	return a.mountPage(r)
}

func (a *App) mountPage(r page.Route) tea.Cmd {
	a.mount++
	a.route = r
	a.mounted = true
	return a.active().Activate(a.mount, r)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.shutdown()
			return a, tea.Quit
		}
		switch msg.String() {
		case "pgup", "pgdown":
			a.viewport, cmd = a.viewport.Update(msg)
			return a, cmd
		}
		if !a.active().Capturing() {
			switch msg.String() {
			case "q":
				a.shutdown()
				return a, tea.Quit
			case "1":
				cmd = a.navigate(page.Route{Page: page.DashboardPage})
				a.refresh(true)
				return a, cmd
			case "2":
				cmd = a.navigate(page.Route{Page: page.SummaryPage})
				a.refresh(true)
				return a, cmd
			case "3":
				cmd = a.navigate(page.Route{Page: page.AnalysisPage, Symbol: a.lastSymbol()})
				a.refresh(true)
				return a, cmd
			}
		}
		cmd = a.active().Update(msg)

	case tea.MouseMsg:
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		vpHeight := max(1, a.height-2)
		if !a.ready {
			a.viewport = viewport.New(a.width, vpHeight)
			a.viewport.MouseWheelEnabled = true
			a.ready = true
		} else {
			a.viewport.Width = a.width
			a.viewport.Height = vpHeight
		}

	case page.NavigateMsg:
		cmd = a.navigate(msg.Route)
		a.refresh(true)
		return a, cmd

	default:
		cmd = a.active().Update(msg)
	}

	a.refresh(false)
	return a, cmd
}

// lastSymbol keeps the analysis symbol when returning to that page.
func (a *App) lastSymbol() string {
	if sa, ok := a.pages[page.AnalysisPage].(*page.StockAnalysis); ok {
		return sa.Symbol()
	}
	return ""
}

func (a *App) refresh(top bool) {
	if !a.ready {
		return
	}
	a.viewport.SetContent(a.active().View(a.width))
	if top {
		a.viewport.GotoTop()
	}
}

func (a *App) shutdown() {
	if a.mounted {
		a.active().Deactivate()
		a.mounted = false
	}
}

func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}
	header := headerStyle.Render(component.PadOrTrunc(" tidder  "+a.active().Title(), a.width))

	help := " 1 dashboard  2 summary  3 analysis  / search  pgup/dn scroll  q quit"
	if a.active().Capturing() {
		help = " enter select  esc close  up/dn move  ctrl+c quit"
	}
	right := fmt.Sprintf("%.0f%% ", a.viewport.ScrollPercent()*100)
	gap := max(0, a.width-len([]rune(help))-len(right))
	footer := footerStyle.Render(component.PadOrTrunc(help+strings.Repeat(" ", gap)+right, a.width))

	return header + "\n" + a.viewport.View() + "\n" + footer
}
