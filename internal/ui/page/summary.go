package page

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"tidder/internal/domain"
	"tidder/internal/ui/component"
)

type summaryLoadedMsg struct {
	mount int
	data  domain.MarketSummary
	err   error
}

// MarketSummary shows index and top stock cards, fetched once per mount.
type MarketSummary struct {
	src  DataSource
	opts Options

	mount  int
	active bool
	data   *domain.MarketSummary
	search component.StockSearch
	loader component.Loader
}

// NewMarketSummary creates the Market Summary page.
func NewMarketSummary(src DataSource, opts Options) *MarketSummary {
	return &MarketSummary{
		src:    src,
		opts:   opts.withDefaults(),
		search: component.NewStockSearch(nil),
		loader: component.NewLoader(),
	}
}

func (p *MarketSummary) Title() string { return "Market Summary" }

func (p *MarketSummary) Capturing() bool { return p.search.Focused() }

// Data returns the fetched summary, or nil while loading.
func (p *MarketSummary) Data() *domain.MarketSummary { return p.data }

// Search returns the page's symbol search.
func (p *MarketSummary) Search() *component.StockSearch { return &p.search }

func (p *MarketSummary) Activate(mount int, _ Route) tea.Cmd {
	p.mount = mount
	p.active = true
	p.data = nil
	p.search = component.NewStockSearch(nil)
	return tea.Batch(p.loader.Tick(), p.fetch())
}

func (p *MarketSummary) Deactivate() { p.active = false }

func (p *MarketSummary) fetch() tea.Cmd {
	mount, src, opts := p.mount, p.src, p.opts
	return func() tea.Msg {
		ctx, cancel := opts.fetchContext()
		defer cancel()
		data, err := src.GetMarketSummary(ctx)
		return summaryLoadedMsg{mount: mount, data: data, err: err}
	}
}

func (p *MarketSummary) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case summaryLoadedMsg:
		if !p.active || msg.mount != p.mount {
			return nil
		}
		if msg.err != nil {
			p.opts.Log.Error("fetching market summary", "error", msg.err)
			return nil
		}
		p.data = &msg.data
		symbols := make([]string, 0, len(msg.data.TopStocks))
		for _, s := range msg.data.TopStocks {
			symbols = append(symbols, s.Symbol)
		}
		p.search.SetCandidates(symbols)
		return nil

	case component.SelectedMsg:
		return Navigate(Route{Page: AnalysisPage, Symbol: msg.Symbol})

	case tea.KeyMsg:
		if p.data == nil {
			return nil
		}
		if !p.search.Focused() && msg.String() == "/" {
			return p.search.Focus()
		}
		return p.search.Update(msg)
	}

	if p.data == nil {
		var cmd tea.Cmd
		p.loader, cmd = p.loader.Update(msg)
		return cmd
	}
	return p.search.Update(msg)
}

// Cards returns the index cards followed by the stock cards.
func (p *MarketSummary) Cards() (indices, stocks []component.StockCard) {
	if p.data == nil {
		return nil, nil
	}
	return summaryCards(p.data.Indices), summaryCards(p.data.TopStocks)
}

func summaryCards(list []domain.StockSummary) []component.StockCard {
	cards := make([]component.StockCard, 0, len(list))
	for _, s := range list {
		cards = append(cards, component.StockCard{Title: s.Symbol, Value: s.Price, Change: domain.Float(s.Change)})
	}
	return cards
}

func (p *MarketSummary) View(width int) string {
	if p.data == nil {
		return p.loader.View()
	}
	indices, stocks := p.Cards()

	var b strings.Builder
	b.WriteString(p.search.View())
	b.WriteString("\n\n")
	b.WriteString(component.Section("Indices", width))
	b.WriteString("\n")
	if len(indices) == 0 {
		b.WriteString(component.DimStyle.Render("  (no indices)"))
	} else {
		b.WriteString(component.Grid(indices, width))
	}
	b.WriteString("\n\n")
	b.WriteString(component.Section("Top Stocks", width))
	b.WriteString("\n")
	if len(stocks) == 0 {
		b.WriteString(component.DimStyle.Render("  (no stocks)"))
	} else {
		b.WriteString(component.Grid(stocks, width))
	}
	return b.String()
}
