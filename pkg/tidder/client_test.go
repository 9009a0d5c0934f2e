package tidder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8000/"
	c := NewClient(baseURL, WithTimeout(5*time.Second))

	if c.baseURL != "http://localhost:8000" {
		t.Errorf("expected trimmed baseURL, got %q", c.baseURL)
	}
	if c.httpClient == nil || c.httpClient.Timeout != 5*time.Second {
		t.Fatalf("expected httpClient with 5s timeout, got %+v", c.httpClient)
	}
}

func newMock(t *testing.T, routes map[string]string) (*Client, *[]string) {
	t.Helper()
	var seen []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.RequestURI())
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"unknown symbol X"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return NewClient(ts.URL), &seen
}

func TestGetMarketSummaryDecodesAlias(t *testing.T) {
	c, _ := newMock(t, map[string]string{
		"/summary": `{"indices":[{"symbol":"NIFTY50","price":19500.25,"changePercent":0.8}],
		             "topStocks":[{"symbol":"RELIANCE","price":2700.5,"changePercent":1.8}]}`,
	})

	sum, err := c.GetMarketSummary(context.Background())
	if err != nil {
		t.Fatalf("GetMarketSummary: %v", err)
	}
	if len(sum.Indices) != 1 || sum.Indices[0].Symbol != "NIFTY50" || sum.Indices[0].Change != 0.8 {
		t.Errorf("indices = %+v", sum.Indices)
	}
	if len(sum.TopStocks) != 1 || sum.TopStocks[0].Price != 2700.5 || sum.TopStocks[0].Change != 1.8 {
		t.Errorf("topStocks = %+v", sum.TopStocks)
	}
}

func TestGetMarketData(t *testing.T) {
	c, _ := newMock(t, map[string]string{
		"/market": `{"nifty50":{"price":19500.25,"change":0.8},"sensex":{"price":null,"change":null}}`,
	})
	snap, err := c.GetMarketData(context.Background())
	if err != nil {
		t.Fatalf("GetMarketData: %v", err)
	}
	if q := snap["nifty50"]; q.Price == nil || *q.Price != 19500.25 {
		t.Errorf("nifty50 = %+v", q)
	}
	if q := snap["sensex"]; q.Price != nil {
		t.Errorf("sensex price = %v, want nil", *q.Price)
	}
}

func TestQueryParams(t *testing.T) {
	c, seen := newMock(t, map[string]string{
		"/top-gainers":   `[]`,
		"/top-losers":    `[]`,
		"/stocks/search": `[{"symbol":"TCS","name":"Tata Consultancy"}]`,
	})
	ctx := context.Background()

	if _, err := c.GetTopGainers(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetTopLosers(ctx, 0); err != nil {
		t.Fatal(err)
	}
	hits, err := c.SearchStocks(ctx, "tata consult", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Symbol != "TCS" {
		t.Errorf("hits = %+v", hits)
	}

	want := []string{"/top-gainers?limit=5", "/top-losers", "/stocks/search?limit=3&q=tata+consult"}
	if len(*seen) != len(want) {
		t.Fatalf("requests = %v, want %v", *seen, want)
	}
	for i := range want {
		if (*seen)[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, (*seen)[i], want[i])
		}
	}
}

func TestGetStockAnalysis(t *testing.T) {
	c, _ := newMock(t, map[string]string{
		"/stock/INFY": `{"symbol":"INFY","price":1500,"changePercent":-1.2,"pe":28.4,
		                 "history":[{"date":"2024-01-01","close":1490},{"date":"2024-01-02","close":1500}],
		                 "candles":[{"date":"2024-01-02","open":1490,"high":1510,"low":1480,"close":1500}],
		                 "indicators":{"RSI 14":{"value":55.2,"signal":"Neutral"}}}`,
	})

	a, err := c.GetStockAnalysis(context.Background(), "INFY")
	if err != nil {
		t.Fatalf("GetStockAnalysis: %v", err)
	}
	if a.PE == nil || *a.PE != 28.4 || a.MarketCap != nil {
		t.Errorf("valuation fields = pe %v cap %v", a.PE, a.MarketCap)
	}
	if a.History.Len() != 2 || a.Candles.Len() != 1 {
		t.Errorf("history %d candles %d", a.History.Len(), a.Candles.Len())
	}
	if a.Indicators["RSI 14"].Value != 55.2 {
		t.Errorf("indicators = %+v", a.Indicators)
	}
}

func TestNotFound(t *testing.T) {
	c, _ := newMock(t, nil)

	_, err := c.GetStockAnalysis(context.Background(), "X")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "unknown symbol X" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).GetStockList(context.Background())
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want non-404 API error", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestContextCancel(t *testing.T) {
	c, _ := newMock(t, map[string]string{"/stocks": `[]`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.GetStockList(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
