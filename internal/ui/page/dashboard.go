package page

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"tidder/internal/domain"
	"tidder/internal/ui/component"
)

// DashboardData is one round's worth of results, committed as a unit.
type DashboardData struct {
	Market  domain.MarketSnapshot
	Gainers []domain.StockSummary
	Losers  []domain.StockSummary
	Sectors []domain.SectorPerformance
}

type dashboardRoundMsg struct {
	mount int
	round int
	data  DashboardData
	at    time.Time
	err   error
}

type dashboardTickMsg struct {
	mount int
}

// Dashboard polls the market snapshot, gainers, losers and sector
// performance and shows the latest complete round.
type Dashboard struct {
	src  DataSource
	opts Options

	mount     int
	active    bool
	ctx       context.Context
	cancel    context.CancelFunc
	round     int // last round issued
	committed int // round shown
	data      *DashboardData
	updated   time.Time
	loader    component.Loader
}

// NewDashboard creates the Dashboard page.
func NewDashboard(src DataSource, opts Options) *Dashboard {
	return &Dashboard{src: src, opts: opts.withDefaults(), loader: component.NewLoader()}
}

func (d *Dashboard) Title() string { return "Dashboard" }

func (d *Dashboard) Capturing() bool { return false }

// Data returns the committed round, or nil before the first one.
func (d *Dashboard) Data() *DashboardData { return d.data }

func (d *Dashboard) Activate(mount int, _ Route) tea.Cmd {
	d.Deactivate()
	d.mount = mount
	d.active = true
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.round, d.committed = 0, 0
	d.data = nil
	return tea.Batch(d.loader.Tick(), d.fetchRound(), d.pollCmd())
}

func (d *Dashboard) Deactivate() {
	d.active = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// pollCmd waits one poll interval, or until the mount is cancelled.
func (d *Dashboard) pollCmd() tea.Cmd {
	ctx, mount, every := d.ctx, d.mount, d.opts.PollInterval
	return func() tea.Msg {
		t := time.NewTimer(every)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			return dashboardTickMsg{mount: mount}
		}
	}
}

// fetchRound issues the four fetches concurrently and joins them into one
// message.
func (d *Dashboard) fetchRound() tea.Cmd {
	d.round++
	mount, round, src, opts := d.mount, d.round, d.src, d.opts
	return func() tea.Msg {
		ctx, cancel := opts.fetchContext()
		defer cancel()

		var data DashboardData
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			data.Market, err = src.GetMarketData(ctx)
			return err
		})
		g.Go(func() (err error) {
			data.Gainers, err = src.GetTopGainers(ctx, opts.ListLimit)
			return err
		})
		g.Go(func() (err error) {
			data.Losers, err = src.GetTopLosers(ctx, opts.ListLimit)
			return err
		})
		g.Go(func() (err error) {
			data.Sectors, err = src.GetSectorPerformance(ctx)
			return err
		})
		err := g.Wait()
		return dashboardRoundMsg{mount: mount, round: round, data: data, at: time.Now(), err: err}
	}
}

func (d *Dashboard) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case dashboardTickMsg:
		if !d.active || msg.mount != d.mount {
			return nil
		}
		return tea.Batch(d.fetchRound(), d.pollCmd())

	case dashboardRoundMsg:
		if !d.active || msg.mount != d.mount {
			return nil
		}
		if msg.err != nil {
			d.opts.Log.Error("dashboard refresh failed", "round", msg.round, "error", msg.err)
			return nil
		}
		if msg.round <= d.committed {
			d.opts.Log.Debug("dropping stale dashboard round", "round", msg.round, "committed", d.committed)
			return nil
		}
		d.data = &msg.data
		d.committed = msg.round
		d.updated = msg.at
		return nil
	}

	if d.data == nil {
		var cmd tea.Cmd
		d.loader, cmd = d.loader.Update(msg)
		return cmd
	}
	return nil
}

func (d *Dashboard) View(width int) string {
	if d.data == nil {
		return d.loader.View()
	}
	var b strings.Builder

	b.WriteString(component.Section("Market", width))
	b.WriteString("\n")
	keys := make([]string, 0, len(d.data.Market))
	for k := range d.data.Market {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cards := make([]component.StockCard, 0, len(keys))
	for _, k := range keys {
		q := d.data.Market[k]
		cards = append(cards, component.StockCard{Title: strings.ToUpper(k), Value: q.Price, Change: q.Change})
	}
	if len(cards) == 0 {
		b.WriteString(component.DimStyle.Render("  (no market data)"))
	} else {
		b.WriteString(component.Grid(cards, width))
	}
	b.WriteString("\n\n")

	b.WriteString(component.Section("Top Gainers", width))
	b.WriteString("\n")
	renderSummaries(&b, d.data.Gainers)
	b.WriteString("\n")

	b.WriteString(component.Section("Top Losers", width))
	b.WriteString("\n")
	renderSummaries(&b, d.data.Losers)
	b.WriteString("\n")

	b.WriteString(component.Section("Sector Performance", width))
	b.WriteString("\n")
	renderSectors(&b, d.data.Sectors)
	b.WriteString("\n")

	b.WriteString(component.DimStyle.Render("  updated " + d.updated.Format("15:04:05")))
	return b.String()
}

func renderSummaries(b *strings.Builder, list []domain.StockSummary) {
	if len(list) == 0 {
		b.WriteString(component.DimStyle.Render("  (no stocks)"))
		b.WriteString("\n")
		return
	}
	b.WriteString(component.ColHeaderStyle.Render(fmt.Sprintf("  %-3s %-12s %-24s %10s %10s", "#", "Symbol", "Name", "Price", "Change")))
	b.WriteString("\n")
	for i, s := range list {
		b.WriteString(component.DimStyle.Render(fmt.Sprintf("  %-3d", i+1)))
		b.WriteString(component.SymbolStyle.Render(fmt.Sprintf(" %-12s", s.Symbol)))
		fmt.Fprintf(b, " %-24s", component.PadOrTrunc(s.Name, 24))
		b.WriteString(component.PriceStyle.Render(fmt.Sprintf(" %10.2f", s.Price)))
		b.WriteString(component.ChangeStyle(s.Change).Render(fmt.Sprintf(" %10s", component.FormatChange(s.Change))))
		b.WriteString("\n")
	}
}

func renderSectors(b *strings.Builder, list []domain.SectorPerformance) {
	if len(list) == 0 {
		b.WriteString(component.DimStyle.Render("  (no sectors)"))
		b.WriteString("\n")
		return
	}
	b.WriteString(component.ColHeaderStyle.Render(fmt.Sprintf("  %-28s %10s", "Sector", "Change")))
	b.WriteString("\n")
	for _, s := range list {
		fmt.Fprintf(b, "  %-28s", component.PadOrTrunc(s.Name, 28))
		b.WriteString(component.ChangeStyle(s.Performance).Render(fmt.Sprintf(" %10s", component.FormatChange(s.Performance))))
		b.WriteString("\n")
	}
}
