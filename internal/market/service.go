package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tidder/internal/config"
	"tidder/internal/domain"
	"tidder/internal/store"
)

// Service answers market queries from the local stores.
type Service struct {
	companies   store.CompanyStore
	quotes      store.QuoteStore
	bars        store.BarStore
	indices     []config.Index
	historyDays int
	now         func() time.Time
}

// NewService creates a Service over the given stores.
func NewService(cs store.CompanyStore, qs store.QuoteStore, bs store.BarStore, indices []config.Index, historyDays int) *Service {
	if historyDays <= 0 {
		historyDays = 365
	}
	return &Service{
		companies:   cs,
		quotes:      qs,
		bars:        bs,
		indices:     indices,
		historyDays: historyDays,
		now:         time.Now,
	}
}

// Market returns the index snapshot.
func (s *Service) Market(ctx context.Context) (domain.MarketSnapshot, error) {
	quotes, err := s.quotes.ListQuotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}
	return Snapshot(s.indices, quotes), nil
}

// TopGainers returns the limit best performing stocks.
func (s *Service) TopGainers(ctx context.Context, limit int) ([]domain.StockSummary, error) {
	sums, err := s.summaries(ctx)
	if err != nil {
		return nil, err
	}
	return TopGainers(sums, limit), nil
}

// TopLosers returns the limit worst performing stocks.
func (s *Service) TopLosers(ctx context.Context, limit int) ([]domain.StockSummary, error) {
	sums, err := s.summaries(ctx)
	if err != nil {
		return nil, err
	}
	return TopLosers(sums, limit), nil
}

// SectorPerformance returns the mean change per sector.
func (s *Service) SectorPerformance(ctx context.Context) ([]domain.SectorPerformance, error) {
	companies, quotes, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return SectorPerformance(companies, quotes), nil
}

// Summary returns index quotes and the most traded stocks.
func (s *Service) Summary(ctx context.Context, limit int) (domain.MarketSummary, error) {
	companies, quotes, err := s.load(ctx)
	if err != nil {
		return domain.MarketSummary{}, err
	}
	return Summary(s.indices, companies, quotes, limit), nil
}

// StockList returns every listed symbol with its name.
func (s *Service) StockList(ctx context.Context) ([]domain.SymbolEntry, error) {
	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	return StockList(companies), nil
}

// Companies returns the listed companies.
func (s *Service) Companies(ctx context.Context) ([]domain.Company, error) {
	return s.companies.ListCompanies(ctx)
}

// Analysis returns the analysis record for symbol. It returns
// store.ErrNotFound when the symbol is neither listed nor has any data.
func (s *Service) Analysis(ctx context.Context, symbol string) (domain.StockAnalysis, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.StockAnalysis{}, store.ErrNotFound
	}

	company, err := s.companies.GetCompany(ctx, symbol)
	listed := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.StockAnalysis{}, fmt.Errorf("getting company: %w", err)
	}
	if !listed {
		company = domain.Company{Symbol: symbol}
	}

	var quote *domain.QuoteRecord
	q, err := s.quotes.GetQuote(ctx, symbol)
	switch {
	case err == nil:
		quote = &q
	case !errors.Is(err, store.ErrNotFound):
		return domain.StockAnalysis{}, fmt.Errorf("getting quote: %w", err)
	}

	end := s.now().UTC()
	bars, err := s.bars.ReadBars(ctx, symbol, end.AddDate(0, 0, -s.historyDays), end)
	if err != nil {
		return domain.StockAnalysis{}, fmt.Errorf("reading bars: %w", err)
	}

	if !listed && quote == nil && len(bars) == 0 {
		return domain.StockAnalysis{}, store.ErrNotFound
	}
	return BuildAnalysis(company, quote, bars), nil
}

func (s *Service) load(ctx context.Context) ([]domain.Company, map[string]domain.QuoteRecord, error) {
	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing companies: %w", err)
	}
	quotes, err := s.quotes.ListQuotes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing quotes: %w", err)
	}
	return companies, quotes, nil
}

func (s *Service) summaries(ctx context.Context) ([]domain.StockSummary, error) {
	companies, quotes, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return Summaries(companies, quotes), nil
}
