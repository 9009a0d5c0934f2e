// Package page implements the client's page views. Each page owns its view
// state for one mount: it is activated when navigated to, deactivated when
// navigated away from, and only mutated from Update on the event loop.
package page

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tidder/internal/domain"
)

// DataSource is the market data API the pages read from. *tidder.Client
// satisfies it.
type DataSource interface {
	GetMarketData(ctx context.Context) (domain.MarketSnapshot, error)
	GetTopGainers(ctx context.Context, limit int) ([]domain.StockSummary, error)
	GetTopLosers(ctx context.Context, limit int) ([]domain.StockSummary, error)
	GetSectorPerformance(ctx context.Context) ([]domain.SectorPerformance, error)
	GetMarketSummary(ctx context.Context) (domain.MarketSummary, error)
	GetStockList(ctx context.Context) ([]domain.SymbolEntry, error)
	GetStockAnalysis(ctx context.Context, symbol string) (domain.StockAnalysis, error)
}

// ID names a page.
type ID int

const (
	DashboardPage ID = iota
	SummaryPage
	AnalysisPage
)

// Route is the client's location: a page plus the analysis symbol.
type Route struct {
	Page   ID
	Symbol string
}

// NavigateMsg asks the app to move to Route.
type NavigateMsg struct {
	Route Route
}

// Navigate returns a command emitting a NavigateMsg.
func Navigate(r Route) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Route: r} }
}

// Page is one view of the client.
type Page interface {
	Title() string
	// Activate starts a new mount; mount ids are unique per app.
	Activate(mount int, r Route) tea.Cmd
	// Deactivate ends the current mount. Results for it are dropped.
	Deactivate()
	Update(msg tea.Msg) tea.Cmd
	View(width int) string
	// Capturing reports whether a text input has focus.
	Capturing() bool
}

// Options tune page behavior.
type Options struct {
	PollInterval time.Duration // Dashboard refresh period
	Timeout      time.Duration // per fetch
	ListLimit    int           // gainers/losers rows
	Log          *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 60 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.ListLimit <= 0 {
		o.ListLimit = 10
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	return o
}

func (o Options) fetchContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), o.Timeout)
}
