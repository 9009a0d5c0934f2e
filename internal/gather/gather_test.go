package gather

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/shopspring/decimal"

	"tidder/internal/config"
	"tidder/internal/domain"
	"tidder/internal/store"
)

func TestParseCompanies(t *testing.T) {
	in := " Symbol , NAME ,Sector\n" +
		"reliance,Reliance Industries,Energy\n" +
		"TCS,Tata Consultancy Services,IT\n" +
		",Blank Symbol,IT\n" +
		"TCS,Duplicate,IT\n" +
		"INFY,Infosys\n"

	got, err := ParseCompanies(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCompanies: %v", err)
	}
	want := []domain.Company{
		{Symbol: "RELIANCE", Name: "Reliance Industries", Sector: "Energy"},
		{Symbol: "TCS", Name: "Tata Consultancy Services", Sector: "IT"},
		{Symbol: "INFY", Name: "Infosys"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d companies, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("company[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseCompaniesMissingColumn(t *testing.T) {
	if _, err := ParseCompanies(strings.NewReader("ticker,name\nTCS,Tata\n")); err == nil {
		t.Fatal("ParseCompanies without symbol column succeeded, want error")
	}
	if _, err := ParseCompanies(strings.NewReader("")); err == nil {
		t.Fatal("ParseCompanies of empty input succeeded, want error")
	}
}

func TestYahooUpstreamSymbol(t *testing.T) {
	p := NewYahooProvider(".NS")
	tests := map[string]string{
		"RELIANCE":    "RELIANCE.NS",
		"^NSEI":       "^NSEI",
		"RELIANCE.BO": "RELIANCE.BO",
	}
	for in, want := range tests {
		if got := p.upstream(in); got != want {
			t.Errorf("upstream(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestYahooQuote(t *testing.T) {
	p := NewYahooProvider(".NS")
	var asked []string
	p.getEquity = func(sym string) (*finance.Equity, error) {
		asked = append(asked, sym)
		if sym != "TCS.NS" {
			return nil, nil
		}
		return &finance.Equity{
			Quote: finance.Quote{
				RegularMarketPrice:         3500,
				RegularMarketPreviousClose: 3440,
				FiftyTwoWeekHigh:           4200,
				RegularMarketVolume:        1000,
			},
			MarketCap:                   12_000_000_000,
			TrailingPE:                  30.5,
			TrailingAnnualDividendYield: 0.0123,
		}, nil
	}
	p.getQuote = func(sym string) (*finance.Quote, error) {
		asked = append(asked, sym)
		return &finance.Quote{RegularMarketPrice: 22000, RegularMarketPreviousClose: 21900}, nil
	}

	q, err := p.Quote(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Symbol != "TCS" || q.Price != 3500 || q.PrevClose != 3440 || q.Volume != 1000 {
		t.Errorf("Quote = %+v", q)
	}
	if q.PE == nil || *q.PE != 30.5 {
		t.Errorf("PE = %v, want 30.5", q.PE)
	}
	if q.DividendYield == nil || *q.DividendYield != 1.23 {
		t.Errorf("DividendYield = %v, want 1.23", q.DividendYield)
	}
	if q.EPS != nil || q.BookValue != nil {
		t.Errorf("EPS/BookValue = %v/%v, want nil", q.EPS, q.BookValue)
	}

	idx, err := p.Quote(context.Background(), "^NSEI")
	if err != nil {
		t.Fatalf("Quote(^NSEI): %v", err)
	}
	if idx.Symbol != "^NSEI" || idx.Price != 22000 {
		t.Errorf("index quote = %+v", idx)
	}

	if _, err := p.Quote(context.Background(), "NOPE"); !errors.Is(err, ErrNoData) {
		t.Errorf("Quote(NOPE) err = %v, want ErrNoData", err)
	}
	if strings.Join(asked, ",") != "TCS.NS,^NSEI,NOPE.NS" {
		t.Errorf("upstream calls = %v", asked)
	}
}

func TestYahooDailyBars(t *testing.T) {
	p := NewYahooProvider(".NS")
	d1 := time.Date(2024, 1, 2, 3, 45, 0, 0, time.UTC)
	p.getBars = func(params *chart.Params) ([]*finance.ChartBar, error) {
		if params.Symbol != "INFY.NS" {
			t.Errorf("chart symbol = %q, want INFY.NS", params.Symbol)
		}
		return []*finance.ChartBar{
			{
				Open: decimal.NewFromFloat(1600), High: decimal.NewFromFloat(1620),
				Low: decimal.NewFromFloat(1590), Close: decimal.NewFromFloat(1610),
				Volume: 5000, Timestamp: int(d1.Unix()),
			},
			{Timestamp: int(d1.AddDate(0, 0, 1).Unix())}, // holiday row
		}, nil
	}

	bars, err := p.DailyBars(context.Background(), "INFY", DateRange{Start: d1, End: d1.AddDate(0, 0, 5)})
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	b := bars[0]
	if b.Symbol != "INFY" || b.Close != 1610 || b.Volume != 5000 {
		t.Errorf("bar = %+v", b)
	}
	if !b.Timestamp.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("bar timestamp = %v, want midnight 2024-01-02", b.Timestamp)
	}
}

func TestYearStats(t *testing.T) {
	high, low, vol := yearStats([]domain.Bar{
		{High: 10, Low: 8, Volume: 100},
		{High: 12, Low: 9, Volume: 300},
		{High: 11, Low: 7, Volume: 200},
	})
	if high != 12 || low != 7 || vol != 200 {
		t.Errorf("yearStats = %v, %v, %v; want 12, 7, 200", high, low, vol)
	}
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Provider = "yahoo"
	p, err := NewProvider(cfg)
	if err != nil || p.Name() != "yahoo" {
		t.Fatalf("NewProvider(yahoo) = %v, %v", p, err)
	}

	cfg.Source.Provider = "alpaca"
	cfg.Alpaca.APIKey = ""
	if _, err := NewProvider(cfg); err == nil {
		t.Error("NewProvider(alpaca) without credentials succeeded, want error")
	}

	cfg.Source.Provider = "bogus"
	if _, err := NewProvider(cfg); err == nil {
		t.Error("NewProvider(bogus) succeeded, want error")
	}
}

// fakeProvider serves canned quotes and one bar per requested day.
type fakeProvider struct {
	mu       sync.Mutex
	failures map[string]int // symbol -> transient failures before success
	missing  map[string]bool
	calls    map[string]int
	ranges   map[string]DateRange
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		failures: map[string]int{},
		missing:  map[string]bool{},
		calls:    map[string]int{},
		ranges:   map[string]DateRange{},
	}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Quote(_ context.Context, symbol string) (domain.QuoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if f.missing[symbol] {
		return domain.QuoteRecord{}, ErrNoData
	}
	if f.failures[symbol] > 0 {
		f.failures[symbol]--
		return domain.QuoteRecord{}, errors.New("temporary")
	}
	return domain.QuoteRecord{Price: 110, PrevClose: 100}, nil
}

func (f *fakeProvider) DailyBars(_ context.Context, symbol string, r DateRange) ([]domain.Bar, error) {
	f.mu.Lock()
	f.ranges[symbol] = r
	f.mu.Unlock()
	var out []domain.Bar
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		out = append(out, domain.Bar{Symbol: symbol, Timestamp: d, Open: 1, High: 2, Low: 1, Close: 2})
	}
	return out, nil
}

func newTestRefresher(t *testing.T, p Provider) (*Refresher, *store.SQLiteStore, *store.ParquetStore) {
	t.Helper()
	dir := t.TempDir()
	sq, err := store.NewSQLiteStore(filepath.Join(dir, "tidder.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	pq := store.NewParquetStore(dir)

	cfg := config.Default()
	cfg.Source.HistoryDays = 3
	cfg.Source.Indices = []config.Index{{Key: "nifty50", Symbol: "^NSEI", Name: "NIFTY50"}}
	cfg.Refresh.RateLimitPerMin = -1
	cfg.Refresh.MaxRetries = 3

	r := NewRefresher(p, sq, sq, pq, cfg)
	r.retryDelay = 0
	r.now = func() time.Time { return time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC) }
	return r, sq, pq
}

func TestRefresherRunOnce(t *testing.T) {
	p := newFakeProvider()
	p.failures["TCS"] = 2
	p.missing["GONE"] = true

	r, sq, pq := newTestRefresher(t, p)
	ctx := context.Background()
	if err := sq.UpsertCompanies(ctx, []domain.Company{
		{Symbol: "TCS", Name: "TCS"}, {Symbol: "INFY", Name: "Infosys"}, {Symbol: "GONE", Name: "Delisted"},
	}); err != nil {
		t.Fatalf("UpsertCompanies: %v", err)
	}

	var after RefreshStats
	r.AfterRun = func(s RefreshStats) { after = s }

	stats, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.Quotes != 3 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 3 quotes and 1 failure", stats)
	}
	if after.Quotes != 3 {
		t.Errorf("AfterRun stats = %+v, want 3 quotes", after)
	}
	if p.calls["TCS"] != 3 {
		t.Errorf("TCS quote calls = %d, want 3 (two retries)", p.calls["TCS"])
	}
	if p.calls["GONE"] != 1 {
		t.Errorf("GONE quote calls = %d, want 1 (no retry on missing data)", p.calls["GONE"])
	}
	if _, ok := p.ranges["^NSEI"]; ok {
		t.Error("bars fetched for an index, want quotes only")
	}

	q, err := sq.GetQuote(ctx, "^NSEI")
	if err != nil {
		t.Fatalf("GetQuote(^NSEI): %v", err)
	}
	if q.Symbol != "^NSEI" || q.Price != 110 {
		t.Errorf("index quote = %+v", q)
	}

	// First pass covers the history window (3 days back through today).
	bars, err := pq.ReadBars(ctx, "INFY", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(bars) != 4 {
		t.Fatalf("INFY bars = %d, want 4", len(bars))
	}

	// Second pass on the same day has nothing new to fetch.
	delete(p.ranges, "INFY")
	stats, err = r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if _, ok := p.ranges["INFY"]; ok {
		t.Errorf("second pass fetched bars %+v, want none", p.ranges["INFY"])
	}
	if stats.Bars != 0 {
		t.Errorf("second pass bars = %d, want 0", stats.Bars)
	}
}

func TestRefresherSyncCompanies(t *testing.T) {
	r, sq, _ := newTestRefresher(t, newFakeProvider())
	csvPath := filepath.Join(t.TempDir(), "companies.csv")
	if err := os.WriteFile(csvPath, []byte("symbol,name,sector\nTCS,Tata Consultancy Services,IT\nHDFCBANK,HDFC Bank,Banking\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r.csvPath = csvPath

	n, err := r.SyncCompanies(context.Background())
	if err != nil {
		t.Fatalf("SyncCompanies: %v", err)
	}
	if n != 2 {
		t.Errorf("SyncCompanies = %d, want 2", n)
	}
	got, err := sq.ListCompanies(context.Background())
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if len(got) != 2 || got[1].Symbol != "HDFCBANK" {
		t.Errorf("ListCompanies = %+v", got)
	}
}

func TestRefresherRunStopsOnCancel(t *testing.T) {
	r, _, _ := newTestRefresher(t, newFakeProvider())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	r.schedule = "not a cron spec"
	if err := r.Run(context.Background()); err == nil {
		t.Error("Run with a bad schedule succeeded, want error")
	}
}

func TestRefresherRateBurst(t *testing.T) {
	cfg := config.Default()
	cfg.Refresh.RateLimitPerMin = 1
	cfg.Refresh.RateBurst = 3
	r := NewRefresher(newFakeProvider(), nil, nil, nil, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := r.limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait #%d within burst: %v", i, err)
		}
	}
	if err := r.limiter.Wait(ctx); err == nil {
		t.Error("Wait beyond the configured burst succeeded, want deadline error")
	}
}
