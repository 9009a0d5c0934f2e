// Package domain defines the core types shared by the tidder server, the Go
// SDK and the terminal client: market quotes, ranked stock summaries, sector
// aggregates, per-symbol analysis records and chart series.
package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Quote is one entry of a MarketSnapshot. A nil field means the upstream
// value was unavailable.
type Quote struct {
	Price  *float64 `json:"price"`
	Change *float64 `json:"change"`
}

// MarketSnapshot maps an index or metric key (e.g. "nifty50") to its quote.
type MarketSnapshot map[string]Quote

// StockSummary is a symbol with its last price and percent change. It appears
// in ranked lists (order is rank) and in search candidate sets.
type StockSummary struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name,omitempty"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"` // percent
}

// UnmarshalJSON accepts "changePercent" as an alias of "change".
func (s *StockSummary) UnmarshalJSON(data []byte) error {
	type plain StockSummary
	var aux struct {
		plain
		ChangePercent *float64 `json:"changePercent"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = StockSummary(aux.plain)
	if aux.ChangePercent != nil {
		s.Change = *aux.ChangePercent
	}
	return nil
}

// SectorPerformance is the mean percent change of a sector's constituents.
type SectorPerformance struct {
	Name        string  `json:"name"`
	Performance float64 `json:"performance"`
}

// MarketSummary holds index quotes and the most traded stocks.
type MarketSummary struct {
	Indices   []StockSummary `json:"indices"`
	TopStocks []StockSummary `json:"topStocks"`
}

// SymbolEntry is one row of the stock list.
type SymbolEntry struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Indicator is a technical indicator's latest value, its change since the
// previous bar and a human-readable interpretation.
type Indicator struct {
	Value  float64  `json:"value"`
	Change *float64 `json:"change,omitempty"`
	Signal string   `json:"signal,omitempty"`
}

// StockAnalysis is the detail record for one symbol. Valuation fields are
// optional and nil when the data source does not provide them.
type StockAnalysis struct {
	Symbol        string               `json:"symbol"`
	Name          string               `json:"name,omitempty"`
	Price         float64              `json:"price"`
	ChangePercent float64              `json:"changePercent"`
	DayHigh       float64              `json:"dayHigh"`
	DayLow        float64              `json:"dayLow"`
	YearHigh      float64              `json:"yearHigh"`
	YearLow       float64              `json:"yearLow"`
	MarketCap     *float64             `json:"marketCap,omitempty"`
	Volume        float64              `json:"volume"`
	AvgVolume     float64              `json:"avgVolume"`
	PE            *float64             `json:"pe,omitempty"`
	EPS           *float64             `json:"eps,omitempty"`
	DividendYield *float64             `json:"dividendYield,omitempty"`
	BookValue     *float64             `json:"bookValue,omitempty"`
	History       Series               `json:"history"`
	Candles       Series               `json:"candles"`
	Indicators    map[string]Indicator `json:"indicators,omitempty"`
	AsOf          time.Time            `json:"asOf"`
}

// Company is a listed company as loaded from the companies CSV.
type Company struct {
	Symbol   string
	Name     string
	Sector   string
	Industry string
}

// Bar is one daily OHLCV bar.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// QuoteRecord is the latest stored quote for a symbol.
type QuoteRecord struct {
	Symbol        string
	Price         float64
	PrevClose     float64
	DayHigh       float64
	DayLow        float64
	YearHigh      float64
	YearLow       float64
	Volume        int64
	AvgVolume     int64
	MarketCap     *float64
	PE            *float64
	EPS           *float64
	DividendYield *float64
	BookValue     *float64
	UpdatedAt     time.Time
}

// ChangePercent returns the percent change from the previous close rounded
// to two decimals. ok is false when either price is missing.
func (q QuoteRecord) ChangePercent() (pct float64, ok bool) {
	if q.Price == 0 || q.PrevClose == 0 {
		return 0, false
	}
	return Round2((q.Price - q.PrevClose) / q.PrevClose * 100), true
}

// Float returns a pointer to v, for optional fields.
func Float(v float64) *float64 { return &v }

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }
