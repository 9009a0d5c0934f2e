package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tidder/internal/domain"
	"tidder/internal/store"
)

type fakeService struct {
	gainerLimit   int
	analysisCalls int
	fail          bool
	onAnalysis    func()
}

var errBoom = errors.New("boom")

func (f *fakeService) Market(context.Context) (domain.MarketSnapshot, error) {
	if f.fail {
		return nil, errBoom
	}
	return domain.MarketSnapshot{
		"nifty50": {Price: domain.Float(19500.25), Change: domain.Float(0.8)},
		"sensex":  {},
	}, nil
}

func (f *fakeService) TopGainers(_ context.Context, limit int) ([]domain.StockSummary, error) {
	f.gainerLimit = limit
	return []domain.StockSummary{{Symbol: "TCS", Name: "Tata Consultancy", Price: 3500, Change: 1.8}}, nil
}

func (f *fakeService) TopLosers(context.Context, int) ([]domain.StockSummary, error) {
	return nil, nil
}

func (f *fakeService) SectorPerformance(context.Context) ([]domain.SectorPerformance, error) {
	return []domain.SectorPerformance{{Name: "IT", Performance: 1.25}}, nil
}

func (f *fakeService) Summary(context.Context, int) (domain.MarketSummary, error) {
	return domain.MarketSummary{
		Indices:   []domain.StockSummary{{Symbol: "NIFTY50", Price: 19500.25, Change: 0.8}},
		TopStocks: []domain.StockSummary{{Symbol: "RELIANCE", Price: 2700.5, Change: 1.8}},
	}, nil
}

func (f *fakeService) StockList(context.Context) ([]domain.SymbolEntry, error) {
	return []domain.SymbolEntry{
		{Symbol: "INFY", Name: "Infosys"},
		{Symbol: "RELIANCE", Name: "Reliance Industries"},
		{Symbol: "TCS", Name: "Tata Consultancy"},
	}, nil
}

func (f *fakeService) Analysis(_ context.Context, symbol string) (domain.StockAnalysis, error) {
	f.analysisCalls++
	if f.onAnalysis != nil {
		f.onAnalysis()
	}
	if symbol != "INFY" {
		return domain.StockAnalysis{}, store.ErrNotFound
	}
	return domain.StockAnalysis{Symbol: "INFY", Price: 1500, ChangePercent: -1.2}, nil
}

type fakeSearcher struct{ q string }

func (f *fakeSearcher) Search(q string, limit int) ([]domain.SymbolEntry, error) {
	f.q = q
	return []domain.SymbolEntry{{Symbol: "TCS", Name: "Tata Consultancy"}}[:min(1, limit)], nil
}

func newTestServer(svc MarketService, search SymbolSearcher, ttl time.Duration) *httptest.Server {
	s := NewServer(svc, search, slog.New(slog.NewTextHandler(io.Discard, nil)), ttl)
	return httptest.NewServer(s.Handler())
}

func get(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp
}

func TestRootAndHeaders(t *testing.T) {
	ts := newTestServer(&fakeService{}, nil, 0)
	defer ts.Close()

	var msg MessageResponse
	resp := get(t, ts.URL+"/", &msg)
	if resp.StatusCode != http.StatusOK || msg.Message == "" {
		t.Fatalf("GET / = %d %+v", resp.StatusCode, msg)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("missing X-Request-ID header")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/market", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if got := resp2.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want echoed abc-123", got)
	}
}

func TestPreflight(t *testing.T) {
	ts := newTestServer(&fakeService{}, nil, 0)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/market", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", resp.StatusCode)
	}
}

func TestMarket(t *testing.T) {
	ts := newTestServer(&fakeService{}, nil, 0)
	defer ts.Close()

	var snap domain.MarketSnapshot
	get(t, ts.URL+"/market", &snap)
	if q := snap["nifty50"]; q.Price == nil || *q.Price != 19500.25 {
		t.Errorf("nifty50 = %+v", q)
	}
	if q := snap["sensex"]; q.Price != nil || q.Change != nil {
		t.Errorf("sensex = %+v, want nil fields", q)
	}
}

func TestMarketError(t *testing.T) {
	ts := newTestServer(&fakeService{fail: true}, nil, 0)
	defer ts.Close()

	var e ErrorResponse
	resp := get(t, ts.URL+"/market", &e)
	if resp.StatusCode != http.StatusInternalServerError || e.Error == "" {
		t.Errorf("GET /market = %d %+v, want 500 with error body", resp.StatusCode, e)
	}
}

func TestLimitParsing(t *testing.T) {
	svc := &fakeService{}
	ts := newTestServer(svc, nil, 0)
	defer ts.Close()

	tests := []struct {
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"", http.StatusOK, 10},
		{"?limit=3", http.StatusOK, 3},
		{"?limit=100000", http.StatusOK, maxLimit},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		svc.gainerLimit = 0
		resp := get(t, ts.URL+"/top-gainers"+tt.query, nil)
		if resp.StatusCode != tt.wantStatus {
			t.Errorf("%q status = %d, want %d", tt.query, resp.StatusCode, tt.wantStatus)
		}
		if svc.gainerLimit != tt.wantLimit {
			t.Errorf("%q limit = %d, want %d", tt.query, svc.gainerLimit, tt.wantLimit)
		}
	}
}

func TestEmptyListsEncodeAsArray(t *testing.T) {
	ts := newTestServer(&fakeService{}, nil, 0)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/top-losers")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "[]\n" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestSummaryAndLists(t *testing.T) {
	ts := newTestServer(&fakeService{}, nil, 0)
	defer ts.Close()

	var sum domain.MarketSummary
	get(t, ts.URL+"/summary", &sum)
	if len(sum.Indices) != 1 || sum.Indices[0].Symbol != "NIFTY50" || sum.TopStocks[0].Change != 1.8 {
		t.Errorf("summary = %+v", sum)
	}

	var sectors []domain.SectorPerformance
	get(t, ts.URL+"/sector-performance", &sectors)
	if len(sectors) != 1 || sectors[0].Performance != 1.25 {
		t.Errorf("sectors = %+v", sectors)
	}

	var stocks []domain.SymbolEntry
	get(t, ts.URL+"/stocks", &stocks)
	if len(stocks) != 3 {
		t.Errorf("len(stocks) = %d, want 3", len(stocks))
	}
}

func TestSearch(t *testing.T) {
	fs := &fakeSearcher{}
	ts := newTestServer(&fakeService{}, fs, 0)
	defer ts.Close()

	var hits []domain.SymbolEntry
	get(t, ts.URL+"/stocks/search?q=tata", &hits)
	if fs.q != "tata" || len(hits) != 1 || hits[0].Symbol != "TCS" {
		t.Errorf("search q=%q hits=%+v", fs.q, hits)
	}

	hits = nil
	get(t, ts.URL+"/stocks/search?q=+", &hits)
	if len(hits) != 0 {
		t.Errorf("blank query hits = %+v, want none", hits)
	}
}

func TestSearchFallback(t *testing.T) {
	ts := newTestServer(&fakeService{}, nil, 0)
	defer ts.Close()

	var hits []domain.SymbolEntry
	get(t, ts.URL+"/stocks/search?q=IN", &hits)
	// INFY by symbol, RELIANCE by "Industries".
	if len(hits) != 2 || hits[0].Symbol != "INFY" || hits[1].Symbol != "RELIANCE" {
		t.Errorf("hits = %+v", hits)
	}

	hits = nil
	get(t, ts.URL+"/stocks/search?q=in&limit=1", &hits)
	if len(hits) != 1 {
		t.Errorf("len(hits) = %d, want 1", len(hits))
	}
}

func TestStock(t *testing.T) {
	ts := newTestServer(&fakeService{}, nil, 0)
	defer ts.Close()

	var a domain.StockAnalysis
	resp := get(t, ts.URL+"/stock/infy", &a)
	if resp.StatusCode != http.StatusOK || a.Symbol != "INFY" || a.ChangePercent != -1.2 {
		t.Errorf("GET /stock/infy = %d %+v", resp.StatusCode, a)
	}

	var e ErrorResponse
	resp = get(t, ts.URL+"/stock/NOPE", &e)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown symbol status = %d, want 404", resp.StatusCode)
	}
	if e.Error != "unknown symbol NOPE" {
		t.Errorf("error = %q", e.Error)
	}
}

func TestStockCache(t *testing.T) {
	svc := &fakeService{}
	s := NewServer(svc, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	get(t, ts.URL+"/stock/INFY", nil)
	get(t, ts.URL+"/stock/INFY", nil)
	if svc.analysisCalls != 1 {
		t.Errorf("analysis calls = %d, want 1 (cached)", svc.analysisCalls)
	}

	now = now.Add(2 * time.Minute)
	get(t, ts.URL+"/stock/INFY", nil)
	if svc.analysisCalls != 2 {
		t.Errorf("analysis calls = %d, want 2 after expiry", svc.analysisCalls)
	}

	s.Invalidate()
	get(t, ts.URL+"/stock/INFY", nil)
	if svc.analysisCalls != 3 {
		t.Errorf("analysis calls = %d, want 3 after Invalidate", svc.analysisCalls)
	}
}

func TestStockCacheSkipsRecordBuiltAcrossInvalidate(t *testing.T) {
	svc := &fakeService{}
	s := NewServer(svc, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	// A refresh completes while the first analysis is being built.
	svc.onAnalysis = func() {
		svc.onAnalysis = nil
		s.Invalidate()
	}
	get(t, ts.URL+"/stock/INFY", nil)
	get(t, ts.URL+"/stock/INFY", nil)
	if svc.analysisCalls != 2 {
		t.Errorf("analysis calls = %d, want 2 (pre-refresh record not cached)", svc.analysisCalls)
	}

	get(t, ts.URL+"/stock/INFY", nil)
	if svc.analysisCalls != 2 {
		t.Errorf("analysis calls = %d, want 2 (post-refresh record cached)", svc.analysisCalls)
	}
}
