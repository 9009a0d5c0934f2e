package market

import (
	"math"
	"time"

	"tidder/internal/domain"
)

// Indicator keys in StockAnalysis.Indicators.
const (
	IndicatorRSI   = "RSI 14"
	IndicatorSMA20 = "SMA 20"
	IndicatorSMA50 = "SMA 50"
	IndicatorEMA20 = "EMA 20"
	IndicatorMACD  = "MACD 12/26/9"
)

const (
	tradingDaysPerYear = 252
	avgVolumeWindow    = 63 // about three months
)

// BuildAnalysis assembles the analysis record for one symbol from its
// company row, latest quote (nil if none) and daily bars, oldest first.
// Quote values win; bars fill what the quote lacks.
func BuildAnalysis(c domain.Company, q *domain.QuoteRecord, bars []domain.Bar) domain.StockAnalysis {
	a := domain.StockAnalysis{
		Symbol:  c.Symbol,
		Name:    c.Name,
		History: HistorySeries(bars),
		Candles: CandleSeries(bars),
	}

	if q != nil {
		a.Price = q.Price
		a.ChangePercent, _ = q.ChangePercent()
		a.DayHigh, a.DayLow = q.DayHigh, q.DayLow
		a.YearHigh, a.YearLow = q.YearHigh, q.YearLow
		a.Volume = float64(q.Volume)
		a.AvgVolume = float64(q.AvgVolume)
		a.MarketCap = q.MarketCap
		a.PE = q.PE
		a.EPS = q.EPS
		a.DividendYield = q.DividendYield
		a.BookValue = q.BookValue
		a.AsOf = q.UpdatedAt
	}

	if n := len(bars); n > 0 {
		last := bars[n-1]
		if a.Price == 0 {
			a.Price = last.Close
			if n > 1 && bars[n-2].Close != 0 {
				a.ChangePercent = domain.Round2((last.Close - bars[n-2].Close) / bars[n-2].Close * 100)
			}
			a.DayHigh, a.DayLow = last.High, last.Low
			a.Volume = float64(last.Volume)
			a.AsOf = last.Timestamp
		}
		if a.YearHigh == 0 || a.YearLow == 0 {
			a.YearHigh, a.YearLow = yearRange(bars)
		}
		if a.AvgVolume == 0 {
			a.AvgVolume = avgVolume(bars, avgVolumeWindow)
		}
	}

	a.Indicators = Indicators(closes(bars), a.Price)
	return a
}

// HistorySeries is the line series of closes keyed by ISO date.
func HistorySeries(bars []domain.Bar) domain.Series {
	pts := make([]domain.LinePoint, len(bars))
	for i, b := range bars {
		pts[i] = domain.LinePoint{Date: b.Timestamp.Format(time.DateOnly), Value: b.Close}
	}
	return domain.NewLineSeries(domain.DefaultValueKey, pts)
}

// CandleSeries is the OHLC series keyed by ISO date.
func CandleSeries(bars []domain.Bar) domain.Series {
	cs := make([]domain.Candle, len(bars))
	for i, b := range bars {
		cs[i] = domain.Candle{
			Date:  b.Timestamp.Format(time.DateOnly),
			Open:  b.Open,
			High:  b.High,
			Low:   b.Low,
			Close: b.Close,
		}
	}
	return domain.NewCandleSeries(cs)
}

// Indicators computes the indicator set over closes. Indicators without
// enough history are left out; price is compared with the moving averages.
func Indicators(closes []float64, price float64) map[string]domain.Indicator {
	out := make(map[string]domain.Indicator)
	if len(closes) == 0 {
		return out
	}
	if price == 0 {
		price = closes[len(closes)-1]
	}

	if v, chg, ok := lastTwo(RSISeries(closes, 14)); ok {
		out[IndicatorRSI] = domain.Indicator{Value: domain.Round2(v), Change: chg, Signal: RSISignal(v)}
	}
	if v, chg, ok := lastTwo(SMASeries(closes, 20)); ok {
		out[IndicatorSMA20] = domain.Indicator{Value: domain.Round2(v), Change: chg, Signal: TrendSignal(price, v)}
	}
	if v, chg, ok := lastTwo(SMASeries(closes, 50)); ok {
		out[IndicatorSMA50] = domain.Indicator{Value: domain.Round2(v), Change: chg, Signal: TrendSignal(price, v)}
	}
	if len(closes) >= 20 {
		v, chg, _ := lastTwo(EMASeries(closes, 20))
		out[IndicatorEMA20] = domain.Indicator{Value: domain.Round2(v), Change: chg, Signal: TrendSignal(price, v)}
	}
	if len(closes) >= 26+9 {
		m := MACDSeries(closes, 12, 26, 9)
		v, chg, _ := lastTwo(m.Line)
		sig := m.Signal[len(m.Signal)-1]
		out[IndicatorMACD] = domain.Indicator{Value: domain.Round2(v), Change: chg, Signal: MACDSignal(v, sig)}
	}
	return out
}

// lastTwo returns the last value of s and its change from the one before.
// ok is false when the last value is NaN; change is nil when the previous
// value is missing.
func lastTwo(s []float64) (v float64, change *float64, ok bool) {
	n := len(s)
	if n == 0 || math.IsNaN(s[n-1]) {
		return 0, nil, false
	}
	v = s[n-1]
	if n > 1 && !math.IsNaN(s[n-2]) {
		change = domain.Float(domain.Round2(v - s[n-2]))
	}
	return v, change, true
}

func closes(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// yearRange scans the most recent 252 bars for the high and low.
func yearRange(bars []domain.Bar) (high, low float64) {
	start := max(len(bars)-tradingDaysPerYear, 0)
	high, low = math.Inf(-1), math.Inf(1)
	for _, b := range bars[start:] {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return high, low
}

func avgVolume(bars []domain.Bar, window int) float64 {
	start := max(len(bars)-window, 0)
	var sum float64
	for _, b := range bars[start:] {
		sum += float64(b.Volume)
	}
	return math.Round(sum / float64(len(bars)-start))
}
