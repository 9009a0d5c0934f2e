package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"

	"tidder/internal/domain"
)

var _ Provider = (*YahooProvider)(nil)

// YahooProvider reads quotes and bars from Yahoo Finance. Listed symbols get
// the exchange suffix appended ("RELIANCE" -> "RELIANCE.NS"); index symbols
// ("^NSEI") and symbols that already carry a suffix are passed through.
type YahooProvider struct {
	suffix string
	log    *slog.Logger

	// Upstream calls, replaceable in tests.
	getEquity func(symbol string) (*finance.Equity, error)
	getQuote  func(symbol string) (*finance.Quote, error)
	getBars   func(p *chart.Params) ([]*finance.ChartBar, error)
}

// NewYahooProvider returns a provider that appends suffix to listed symbols.
func NewYahooProvider(suffix string) *YahooProvider {
	return &YahooProvider{
		suffix:    suffix,
		log:       slog.Default().With("provider", "yahoo"),
		getEquity: equity.Get,
		getQuote:  quote.Get,
		getBars:   chartBars,
	}
}

// Name returns the provider identifier.
func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) upstream(symbol string) string {
	if strings.HasPrefix(symbol, "^") || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + p.suffix
}

// Quote returns the latest quote for symbol. Indices are read through the
// plain quote endpoint, listed stocks through the equity endpoint so the
// valuation fields are filled.
func (p *YahooProvider) Quote(ctx context.Context, symbol string) (domain.QuoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.QuoteRecord{}, err
	}
	up := p.upstream(symbol)

	if strings.HasPrefix(symbol, "^") {
		q, err := p.getQuote(up)
		if err != nil {
			return domain.QuoteRecord{}, fmt.Errorf("yahoo quote %s: %w", up, err)
		}
		if q == nil {
			return domain.QuoteRecord{}, fmt.Errorf("yahoo quote %s: %w", up, ErrNoData)
		}
		return quoteRecord(symbol, q), nil
	}

	e, err := p.getEquity(up)
	if err != nil {
		return domain.QuoteRecord{}, fmt.Errorf("yahoo equity %s: %w", up, err)
	}
	if e == nil {
		return domain.QuoteRecord{}, fmt.Errorf("yahoo equity %s: %w", up, ErrNoData)
	}
	rec := quoteRecord(symbol, &e.Quote)
	rec.MarketCap = positive(float64(e.MarketCap))
	rec.PE = positive(e.TrailingPE)
	rec.EPS = nonZero(e.EpsTrailingTwelveMonths)
	// Yahoo reports the yield as a fraction.
	rec.DividendYield = positive(domain.Round2(e.TrailingAnnualDividendYield * 100))
	rec.BookValue = nonZero(e.BookValue)
	return rec, nil
}

// DailyBars returns daily bars for symbol within r.
func (p *YahooProvider) DailyBars(ctx context.Context, symbol string, r DateRange) ([]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	up := p.upstream(symbol)
	start, end := r.Start, r.End
	rows, err := p.getBars(&chart.Params{
		Symbol:   up,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", up, err)
	}

	bars := make([]domain.Bar, 0, len(rows))
	for _, b := range rows {
		if b == nil {
			continue
		}
		open, _ := b.Open.Float64()
		high, _ := b.High.Float64()
		low, _ := b.Low.Float64()
		cls, _ := b.Close.Float64()
		if cls == 0 {
			// Yahoo emits empty rows for holidays.
			continue
		}
		ts := time.Unix(int64(b.Timestamp), 0).UTC()
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     cls,
			Volume:    int64(b.Volume),
		})
	}
	p.log.Debug("fetched bars", "symbol", symbol, "count", len(bars))
	return bars, nil
}

func chartBars(params *chart.Params) ([]*finance.ChartBar, error) {
	iter := chart.Get(params)
	var out []*finance.ChartBar
	for iter.Next() {
		out = append(out, iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func quoteRecord(symbol string, q *finance.Quote) domain.QuoteRecord {
	return domain.QuoteRecord{
		Symbol:    symbol,
		Price:     q.RegularMarketPrice,
		PrevClose: q.RegularMarketPreviousClose,
		DayHigh:   q.RegularMarketDayHigh,
		DayLow:    q.RegularMarketDayLow,
		YearHigh:  q.FiftyTwoWeekHigh,
		YearLow:   q.FiftyTwoWeekLow,
		Volume:    int64(q.RegularMarketVolume),
		AvgVolume: int64(q.AverageDailyVolume3Month),
		UpdatedAt: time.Now().UTC(),
	}
}

func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return domain.Float(v)
}

func nonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return domain.Float(v)
}
