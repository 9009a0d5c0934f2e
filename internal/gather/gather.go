// Package gather fetches quotes and daily bars from upstream market data
// providers and keeps the local stores fresh.
package gather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tidder/internal/config"
	"tidder/internal/domain"
)

// ErrNoData is returned by a Provider when the upstream has nothing for a
// symbol. Callers treat it as permanent for the current run.
var ErrNoData = errors.New("no data")

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Provider fetches market data for one symbol at a time.
type Provider interface {
	// Name returns the provider identifier.
	Name() string
	// Quote returns the latest quote for symbol.
	Quote(ctx context.Context, symbol string) (domain.QuoteRecord, error)
	// DailyBars returns daily bars for symbol within r, oldest first.
	DailyBars(ctx context.Context, symbol string, r DateRange) ([]domain.Bar, error)
}

// NewProvider builds the provider selected by cfg.Source.Provider.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.Source.Provider {
	case "yahoo":
		return NewYahooProvider(cfg.Source.ExchangeSuffix), nil
	case "alpaca":
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			return nil, errors.New("alpaca provider needs api_key and api_secret")
		}
		return NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Source.Provider)
	}
}
