// Package market computes the market views served by the API: index
// snapshots, gainer and loser rankings, sector averages, the market summary
// and per-symbol analysis records.
package market

import (
	"sort"

	"tidder/internal/config"
	"tidder/internal/domain"
)

// DefaultLimit is the ranking size when the caller gives none.
const DefaultLimit = 10

// OtherSector groups companies without a sector.
const OtherSector = "Other"

// Snapshot builds the market snapshot keyed by index key. An index with no
// stored quote gets nil price and change; one without a previous close gets
// a nil change.
func Snapshot(indices []config.Index, quotes map[string]domain.QuoteRecord) domain.MarketSnapshot {
	snap := make(domain.MarketSnapshot, len(indices))
	for _, idx := range indices {
		q, ok := quotes[idx.Symbol]
		if !ok || q.Price == 0 {
			snap[idx.Key] = domain.Quote{}
			continue
		}
		entry := domain.Quote{Price: domain.Float(q.Price)}
		if pct, ok := q.ChangePercent(); ok {
			entry.Change = domain.Float(pct)
		}
		snap[idx.Key] = entry
	}
	return snap
}

// Summaries returns one summary per company that has a stored quote, in
// listing order. A quote without a previous close counts as unchanged.
func Summaries(companies []domain.Company, quotes map[string]domain.QuoteRecord) []domain.StockSummary {
	out := make([]domain.StockSummary, 0, len(companies))
	for _, c := range companies {
		q, ok := quotes[c.Symbol]
		if !ok {
			continue
		}
		pct, _ := q.ChangePercent()
		out = append(out, domain.StockSummary{
			Symbol: c.Symbol,
			Name:   c.Name,
			Price:  q.Price,
			Change: pct,
		})
	}
	return out
}

// TopGainers returns up to limit summaries by change, highest first. Ties
// keep listing order. limit <= 0 returns all.
func TopGainers(summaries []domain.StockSummary, limit int) []domain.StockSummary {
	return ranked(summaries, limit, func(a, b domain.StockSummary) bool { return a.Change > b.Change })
}

// TopLosers returns up to limit summaries by change, lowest first.
func TopLosers(summaries []domain.StockSummary, limit int) []domain.StockSummary {
	return ranked(summaries, limit, func(a, b domain.StockSummary) bool { return a.Change < b.Change })
}

func ranked(summaries []domain.StockSummary, limit int, less func(a, b domain.StockSummary) bool) []domain.StockSummary {
	out := make([]domain.StockSummary, len(summaries))
	copy(out, summaries)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SectorPerformance averages the percent change of each sector's quoted
// constituents, rounded to two decimals. Sectors appear in the order their
// first company is listed.
func SectorPerformance(companies []domain.Company, quotes map[string]domain.QuoteRecord) []domain.SectorPerformance {
	type acc struct {
		sum float64
		n   int
	}
	var order []string
	sums := make(map[string]*acc)
	for _, c := range companies {
		q, ok := quotes[c.Symbol]
		if !ok {
			continue
		}
		sector := c.Sector
		if sector == "" {
			sector = OtherSector
		}
		a, seen := sums[sector]
		if !seen {
			a = &acc{}
			sums[sector] = a
			order = append(order, sector)
		}
		pct, _ := q.ChangePercent()
		a.sum += pct
		a.n++
	}

	out := make([]domain.SectorPerformance, 0, len(order))
	for _, name := range order {
		a := sums[name]
		out = append(out, domain.SectorPerformance{
			Name:        name,
			Performance: domain.Round2(a.sum / float64(a.n)),
		})
	}
	return out
}

// Summary returns the index quotes (under their display names) and the limit
// most traded stocks by price times volume.
func Summary(indices []config.Index, companies []domain.Company, quotes map[string]domain.QuoteRecord, limit int) domain.MarketSummary {
	sum := domain.MarketSummary{
		Indices:   []domain.StockSummary{},
		TopStocks: []domain.StockSummary{},
	}
	for _, idx := range indices {
		q, ok := quotes[idx.Symbol]
		if !ok {
			continue
		}
		pct, _ := q.ChangePercent()
		name := idx.Name
		if name == "" {
			name = idx.Key
		}
		sum.Indices = append(sum.Indices, domain.StockSummary{Symbol: name, Price: q.Price, Change: pct})
	}

	type traded struct {
		s     domain.StockSummary
		value float64
	}
	var all []traded
	for _, s := range Summaries(companies, quotes) {
		q := quotes[s.Symbol]
		all = append(all, traded{s: s, value: q.Price * float64(q.Volume)})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].value > all[j].value })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	for _, t := range all {
		sum.TopStocks = append(sum.TopStocks, t.s)
	}
	return sum
}

// StockList maps companies to list entries in listing order.
func StockList(companies []domain.Company) []domain.SymbolEntry {
	out := make([]domain.SymbolEntry, len(companies))
	for i, c := range companies {
		out[i] = domain.SymbolEntry{Symbol: c.Symbol, Name: c.Name}
	}
	return out
}
