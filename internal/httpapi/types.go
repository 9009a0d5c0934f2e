// Package httpapi serves the market data REST API consumed by the terminal
// client and the Go SDK.
package httpapi

import (
	"context"

	"tidder/internal/domain"
)

// MarketService answers the market queries behind the API routes.
type MarketService interface {
	Market(ctx context.Context) (domain.MarketSnapshot, error)
	TopGainers(ctx context.Context, limit int) ([]domain.StockSummary, error)
	TopLosers(ctx context.Context, limit int) ([]domain.StockSummary, error)
	SectorPerformance(ctx context.Context) ([]domain.SectorPerformance, error)
	Summary(ctx context.Context, limit int) (domain.MarketSummary, error)
	StockList(ctx context.Context) ([]domain.SymbolEntry, error)
	Analysis(ctx context.Context, symbol string) (domain.StockAnalysis, error)
}

// SymbolSearcher ranks listed symbols for a free-text query.
type SymbolSearcher interface {
	Search(q string, limit int) ([]domain.SymbolEntry, error)
}

// MessageResponse is the body of the welcome route.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
