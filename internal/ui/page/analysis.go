package page

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"tidder/internal/domain"
	"tidder/internal/ui/component"
)

const pickerRows = 15

type symbolsLoadedMsg struct {
	mount int
	list  []domain.SymbolEntry
	err   error
}

type analysisLoadedMsg struct {
	mount  int
	gen    int
	symbol string
	data   domain.StockAnalysis
	err    error
}

// AnalysisState is the observable state of the StockAnalysis page.
type AnalysisState int

const (
	NoSymbol AnalysisState = iota
	Pending
	Ready
)

// StockAnalysis shows the detail record of one symbol. The symbol comes
// from the route; a newer symbol always wins over a slower earlier fetch.
type StockAnalysis struct {
	src  DataSource
	opts Options

	mount       int
	active      bool
	symbols     []domain.SymbolEntry
	listLoading bool
	cursor      int // picker position
	symbol      string
	gen         int
	data        *domain.StockAnalysis
	candles     bool
	search      component.StockSearch
	loader      component.Loader
}

// NewStockAnalysis creates the Stock Analysis page.
func NewStockAnalysis(src DataSource, opts Options) *StockAnalysis {
	return &StockAnalysis{
		src:    src,
		opts:   opts.withDefaults(),
		search: component.NewStockSearch(nil),
		loader: component.NewLoader(),
	}
}

func (p *StockAnalysis) Title() string {
	if p.symbol == "" {
		return "Stock Analysis"
	}
	return "Stock Analysis: " + p.symbol
}

func (p *StockAnalysis) Capturing() bool { return p.search.Focused() }

// State reports which of the three views is shown.
func (p *StockAnalysis) State() AnalysisState {
	switch {
	case p.symbol == "":
		return NoSymbol
	case p.data == nil:
		return Pending
	default:
		return Ready
	}
}

// Symbol returns the active symbol.
func (p *StockAnalysis) Symbol() string { return p.symbol }

// Data returns the committed analysis record, or nil.
func (p *StockAnalysis) Data() *domain.StockAnalysis { return p.data }

func (p *StockAnalysis) Activate(mount int, r Route) tea.Cmd {
	p.mount = mount
	p.active = true
	p.symbols = nil
	p.listLoading = true
	p.cursor = 0
	p.symbol = ""
	p.data = nil
	p.search = component.NewStockSearch(nil)
	return tea.Batch(p.loader.Tick(), p.fetchSymbols(), p.SetSymbol(r.Symbol))
}

func (p *StockAnalysis) Deactivate() { p.active = false }

// SetSymbol makes symbol active: the current record is discarded and a
// fetch for the new symbol is issued. An unchanged symbol is a no-op.
func (p *StockAnalysis) SetSymbol(symbol string) tea.Cmd {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == p.symbol {
		return nil
	}
	p.symbol = symbol
	p.data = nil
	p.gen++
	if symbol == "" {
		return nil
	}
	return tea.Batch(p.loader.Tick(), p.fetchAnalysis())
}

func (p *StockAnalysis) fetchSymbols() tea.Cmd {
	mount, src, opts := p.mount, p.src, p.opts
	return func() tea.Msg {
		ctx, cancel := opts.fetchContext()
		defer cancel()
		list, err := src.GetStockList(ctx)
		return symbolsLoadedMsg{mount: mount, list: list, err: err}
	}
}

func (p *StockAnalysis) fetchAnalysis() tea.Cmd {
	mount, gen, symbol, src, opts := p.mount, p.gen, p.symbol, p.src, p.opts
	return func() tea.Msg {
		ctx, cancel := opts.fetchContext()
		defer cancel()
		data, err := src.GetStockAnalysis(ctx, symbol)
		return analysisLoadedMsg{mount: mount, gen: gen, symbol: symbol, data: data, err: err}
	}
}

func (p *StockAnalysis) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case symbolsLoadedMsg:
		if !p.active || msg.mount != p.mount {
			return nil
		}
		p.listLoading = false
		if msg.err != nil {
			p.opts.Log.Error("fetching stock list", "error", msg.err)
			return nil
		}
		p.symbols = msg.list
		syms := make([]string, len(msg.list))
		for i, e := range msg.list {
			syms[i] = e.Symbol
		}
		p.search.SetCandidates(syms)
		return nil

	case analysisLoadedMsg:
		if !p.active || msg.mount != p.mount || msg.gen != p.gen || msg.symbol != p.symbol {
			p.opts.Log.Debug("dropping stale analysis", "symbol", msg.symbol, "active", p.symbol)
			return nil
		}
		if msg.err != nil {
			p.opts.Log.Error("fetching stock analysis", "symbol", msg.symbol, "error", msg.err)
			return nil
		}
		p.data = &msg.data
		return nil

	case component.SelectedMsg:
		return Navigate(Route{Page: AnalysisPage, Symbol: msg.Symbol})

	case tea.KeyMsg:
		if p.search.Focused() {
			return p.search.Update(msg)
		}
		return p.handleKey(msg)
	}

	var cmds []tea.Cmd
	if p.State() != Ready {
		var cmd tea.Cmd
		p.loader, cmd = p.loader.Update(msg)
		cmds = append(cmds, cmd)
	}
	if p.search.Focused() {
		cmds = append(cmds, p.search.Update(msg))
	}
	return tea.Batch(cmds...)
}

func (p *StockAnalysis) handleKey(msg tea.KeyMsg) tea.Cmd {
	if p.symbol == "" {
		switch msg.String() {
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(p.symbols)-1 {
				p.cursor++
			}
		case "enter":
			if p.cursor < len(p.symbols) {
				return Navigate(Route{Page: AnalysisPage, Symbol: p.symbols[p.cursor].Symbol})
			}
		case "/":
			return p.search.Focus()
		}
		return nil
	}

	switch msg.String() {
	case "left", "h":
		return p.step(-1)
	case "right", "l":
		return p.step(1)
	case "/":
		return p.search.Focus()
	case "c":
		p.candles = !p.candles
	}
	return nil
}

// step navigates to the neighbouring symbol in the list.
func (p *StockAnalysis) step(delta int) tea.Cmd {
	if len(p.symbols) == 0 {
		return nil
	}
	i := p.index()
	if i < 0 {
		i = 0
	} else {
		i = (i + delta + len(p.symbols)) % len(p.symbols)
	}
	return Navigate(Route{Page: AnalysisPage, Symbol: p.symbols[i].Symbol})
}

func (p *StockAnalysis) index() int {
	for i, e := range p.symbols {
		if e.Symbol == p.symbol {
			return i
		}
	}
	return -1
}

func (p *StockAnalysis) View(width int) string {
	switch p.State() {
	case NoSymbol:
		return p.pickerView(width)
	case Pending:
		return p.selectorView() + "\n\n" + p.loader.View()
	default:
		return p.detailView(width)
	}
}

func (p *StockAnalysis) pickerView(width int) string {
	var b strings.Builder
	b.WriteString(component.Section("Select a symbol", width))
	b.WriteString("\n")
	if p.listLoading {
		b.WriteString(component.DimStyle.Render("  Loading symbols..."))
		return b.String()
	}
	if len(p.symbols) == 0 {
		b.WriteString(component.DimStyle.Render("  (no symbols)"))
		return b.String()
	}
	b.WriteString(p.search.View())
	b.WriteString("\n")

	start := max(0, min(p.cursor-pickerRows/2, len(p.symbols)-pickerRows))
	end := min(start+pickerRows, len(p.symbols))
	for i := start; i < end; i++ {
		e := p.symbols[i]
		line := fmt.Sprintf("  %-12s %s", e.Symbol, e.Name)
		if i == p.cursor {
			b.WriteString(component.HighlightStyle.Render(component.PadOrTrunc(line, min(width, 60))))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	b.WriteString(component.DimStyle.Render(fmt.Sprintf("  %d/%d  up/down move  enter select  / search", p.cursor+1, len(p.symbols))))
	return b.String()
}

// selectorView is the header with the symbol selector.
func (p *StockAnalysis) selectorView() string {
	var b strings.Builder
	b.WriteString(component.SymbolStyle.Render("  " + p.symbol))
	if i := p.index(); i >= 0 {
		if name := p.symbols[i].Name; name != "" {
			b.WriteString("  " + name)
		}
		b.WriteString(component.DimStyle.Render(fmt.Sprintf("    ◀ %d/%d ▶", i+1, len(p.symbols))))
	}
	b.WriteString(component.DimStyle.Render("    left/right change  / search  c chart mode"))
	if p.search.Focused() {
		b.WriteString("\n")
		b.WriteString(p.search.View())
	}
	return b.String()
}

// OverviewCards returns the overview grid of the loaded record.
func (p *StockAnalysis) OverviewCards() []component.StockCard {
	if p.data == nil {
		return nil
	}
	a := p.data
	return []component.StockCard{
		{Title: "Price", Value: a.Price},
		{Title: "Change", Value: a.ChangePercent, Change: domain.Float(a.ChangePercent)},
		{Title: "Day High", Value: a.DayHigh},
		{Title: "Day Low", Value: a.DayLow},
		{Title: "52W High", Value: a.YearHigh},
		{Title: "52W Low", Value: a.YearLow},
		{Title: "Market Cap", Value: large(a.MarketCap)},
		{Title: "Volume", Value: component.FormatLarge(a.Volume)},
		{Title: "Avg Volume", Value: component.FormatLarge(a.AvgVolume)},
		{Title: "P/E", Value: a.PE},
		{Title: "EPS", Value: a.EPS},
		{Title: "Div Yield", Value: percent(a.DividendYield)},
		{Title: "Book Value", Value: a.BookValue},
	}
}

// IndicatorCards returns one card per indicator, sorted by name.
func (p *StockAnalysis) IndicatorCards() []component.StockCard {
	if p.data == nil {
		return nil
	}
	names := make([]string, 0, len(p.data.Indicators))
	for n := range p.data.Indicators {
		names = append(names, n)
	}
	sort.Strings(names)
	cards := make([]component.StockCard, 0, len(names))
	for _, n := range names {
		ind := p.data.Indicators[n]
		cards = append(cards, component.StockCard{Title: n, Value: ind.Value, Change: ind.Change, Annotation: ind.Signal})
	}
	return cards
}

func (p *StockAnalysis) detailView(width int) string {
	var b strings.Builder
	b.WriteString(p.selectorView())
	b.WriteString("\n\n")
	b.WriteString(component.Section("Overview", width))
	b.WriteString("\n")
	b.WriteString(component.Grid(p.OverviewCards(), width))
	b.WriteString("\n\n")

	if inds := p.IndicatorCards(); len(inds) > 0 {
		b.WriteString(component.Section("Indicators", width))
		b.WriteString("\n")
		b.WriteString(component.Grid(inds, width))
		b.WriteString("\n\n")
	}

	series, label := p.data.History, "Price History"
	if p.candles {
		series, label = p.data.Candles, "Candles"
	}
	b.WriteString(component.Section(label, width))
	b.WriteString("\n")
	b.WriteString(component.Chart{Series: series, Width: width - 2, Height: 12}.View())
	return b.String()
}

func large(v *float64) any {
	if v == nil {
		return nil
	}
	return component.FormatLarge(*v)
}

func percent(v *float64) any {
	if v == nil {
		return nil
	}
	return fmt.Sprintf("%.2f%%", *v)
}
