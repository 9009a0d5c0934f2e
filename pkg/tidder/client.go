// Package tidder is a Go client for the tidder-server market data API.
package tidder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tidder/internal/domain"
)

// ErrNotFound is returned (wrapped) when the server answers 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tidder api: status %d", e.Status)
	}
	return fmt.Sprintf("tidder api: status %d: %s", e.Status, e.Message)
}

// Unwrap maps a 404 to ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client provides a Go SDK for interacting with the tidder-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// NewClient creates a new tidder API client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetMarketData retrieves the index snapshot.
func (c *Client) GetMarketData(ctx context.Context) (domain.MarketSnapshot, error) {
	var out domain.MarketSnapshot
	if err := c.get(ctx, "/market", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTopGainers retrieves the best performing stocks. limit <= 0 uses the
// server default.
func (c *Client) GetTopGainers(ctx context.Context, limit int) ([]domain.StockSummary, error) {
	var out []domain.StockSummary
	if err := c.get(ctx, "/top-gainers", limitQuery(limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTopLosers retrieves the worst performing stocks.
func (c *Client) GetTopLosers(ctx context.Context, limit int) ([]domain.StockSummary, error) {
	var out []domain.StockSummary
	if err := c.get(ctx, "/top-losers", limitQuery(limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSectorPerformance retrieves the mean change per sector.
func (c *Client) GetSectorPerformance(ctx context.Context) ([]domain.SectorPerformance, error) {
	var out []domain.SectorPerformance
	if err := c.get(ctx, "/sector-performance", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMarketSummary retrieves index quotes and the most traded stocks.
func (c *Client) GetMarketSummary(ctx context.Context) (domain.MarketSummary, error) {
	var out domain.MarketSummary
	err := c.get(ctx, "/summary", nil, &out)
	return out, err
}

// GetStockList retrieves every listed symbol.
func (c *Client) GetStockList(ctx context.Context) ([]domain.SymbolEntry, error) {
	var out []domain.SymbolEntry
	if err := c.get(ctx, "/stocks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchStocks runs a full-text symbol search on the server.
func (c *Client) SearchStocks(ctx context.Context, q string, limit int) ([]domain.SymbolEntry, error) {
	params := limitQuery(limit)
	if params == nil {
		params = url.Values{}
	}
	params.Set("q", q)
	var out []domain.SymbolEntry
	if err := c.get(ctx, "/stocks/search", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStockAnalysis retrieves the analysis record for symbol. An unknown
// symbol yields an error wrapping ErrNotFound.
func (c *Client) GetStockAnalysis(ctx context.Context, symbol string) (domain.StockAnalysis, error) {
	var out domain.StockAnalysis
	err := c.get(ctx, "/stock/"+url.PathEscape(symbol), nil, &out)
	return out, err
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	return url.Values{"limit": {strconv.Itoa(limit)}}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil {
			apiErr.Message = e.Error
		}
		return fmt.Errorf("GET %s: %w", path, apiErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
