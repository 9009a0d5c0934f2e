// Package store defines storage interfaces for persisting and retrieving
// companies, latest quotes and daily bars.
package store

import (
	"context"
	"errors"
	"time"

	"tidder/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// CompanyStore persists the listed-company universe.
type CompanyStore interface {
	// UpsertCompanies inserts or replaces companies. Slice order is kept as
	// the listing order.
	UpsertCompanies(ctx context.Context, companies []domain.Company) error

	// ListCompanies returns all companies in listing order.
	ListCompanies(ctx context.Context) ([]domain.Company, error)

	// GetCompany returns one company or ErrNotFound.
	GetCompany(ctx context.Context, symbol string) (domain.Company, error)
}

// QuoteStore persists the latest quote per symbol.
type QuoteStore interface {
	// UpsertQuote inserts or replaces the quote for q.Symbol.
	UpsertQuote(ctx context.Context, q domain.QuoteRecord) error

	// GetQuote returns the latest quote for a symbol or ErrNotFound.
	GetQuote(ctx context.Context, symbol string) (domain.QuoteRecord, error)

	// ListQuotes returns every stored quote keyed by symbol.
	ListQuotes(ctx context.Context) (map[string]domain.QuoteRecord, error)
}

// BarStore persists and retrieves daily OHLCV bars.
type BarStore interface {
	// WriteBars persists a batch of bars, replacing bars with the same
	// symbol and timestamp.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for symbol within [start, end], oldest first.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// LastBarTime returns the timestamp of the newest stored bar for symbol
	// or ErrNotFound.
	LastBarTime(ctx context.Context, symbol string) (time.Time, error)

	// ListSymbols returns all symbols with stored bars.
	ListSymbols(ctx context.Context) ([]string, error)
}
