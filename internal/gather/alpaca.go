package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tidder/internal/domain"
)

var _ Provider = (*AlpacaProvider)(nil)

// AlpacaProvider reads quotes and daily bars from the Alpaca market-data API.
// Alpaca has no valuation data, so those fields stay nil.
type AlpacaProvider struct {
	client *marketdata.Client
	feed   string
	log    *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider with the given credentials.
// An empty dataURL uses the SDK default.
func NewAlpacaProvider(apiKey, apiSecret, dataURL, feed string) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if feed == "" {
		feed = "iex"
	}
	return &AlpacaProvider{
		client: marketdata.NewClient(opts),
		feed:   feed,
		log:    slog.Default().With("provider", "alpaca"),
	}
}

// Name returns the provider identifier.
func (p *AlpacaProvider) Name() string { return "alpaca" }

// Quote builds a quote from the symbol's snapshot and its trailing year of
// daily bars (for the 52-week range and average volume).
func (p *AlpacaProvider) Quote(ctx context.Context, symbol string) (domain.QuoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.QuoteRecord{}, err
	}
	sym := strings.ToUpper(symbol)

	snap, err := p.client.GetSnapshot(sym, marketdata.GetSnapshotRequest{Feed: p.feed})
	if err != nil {
		return domain.QuoteRecord{}, fmt.Errorf("GetSnapshot %s: %w", sym, err)
	}
	if snap == nil || snap.DailyBar == nil {
		return domain.QuoteRecord{}, fmt.Errorf("snapshot %s: %w", sym, ErrNoData)
	}

	rec := domain.QuoteRecord{
		Symbol:    symbol,
		Price:     snap.DailyBar.Close,
		DayHigh:   snap.DailyBar.High,
		DayLow:    snap.DailyBar.Low,
		Volume:    int64(snap.DailyBar.Volume),
		UpdatedAt: time.Now().UTC(),
	}
	if snap.LatestTrade != nil && snap.LatestTrade.Price > 0 {
		rec.Price = snap.LatestTrade.Price
	}
	if snap.PrevDailyBar != nil {
		rec.PrevClose = snap.PrevDailyBar.Close
	}

	end := time.Now().UTC()
	bars, err := p.DailyBars(ctx, symbol, DateRange{Start: end.AddDate(-1, 0, 0), End: end})
	if err != nil {
		p.log.Warn("year range unavailable", "symbol", sym, "error", err)
		return rec, nil
	}
	rec.YearHigh, rec.YearLow, rec.AvgVolume = yearStats(bars)
	return rec, nil
}

// DailyBars returns daily bars for symbol within r.
func (p *AlpacaProvider) DailyBars(ctx context.Context, symbol string, r DateRange) ([]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sym := strings.ToUpper(symbol)
	abars, err := p.client.GetBars(sym, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     r.Start,
		End:       r.End,
		Feed:      p.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", sym, err)
	}

	bars := make([]domain.Bar, 0, len(abars))
	for _, ab := range abars {
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: ab.Timestamp.UTC(),
			Open:      ab.Open,
			High:      ab.High,
			Low:       ab.Low,
			Close:     ab.Close,
			Volume:    int64(ab.Volume),
		})
	}
	return bars, nil
}

// yearStats returns the high, low and mean volume over bars.
func yearStats(bars []domain.Bar) (high, low float64, avgVolume int64) {
	if len(bars) == 0 {
		return 0, 0, 0
	}
	low = bars[0].Low
	var vol int64
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
		vol += b.Volume
	}
	return high, low, vol / int64(len(bars))
}
