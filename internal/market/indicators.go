package market

import "math"

// SMA returns the simple moving average of the last period values, or NaN
// when there are fewer than period values.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// SMASeries returns the rolling SMA; entries before the first full window
// are NaN.
func SMASeries(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMASeries returns the exponential moving average with alpha 2/(span+1),
// seeded with the first value.
func EMASeries(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSISeries returns the relative strength index over rolling simple means of
// gains and losses. Entries without a full window are NaN. A window with no
// losses reads as 100.
func RSISeries(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	var sumGain, sumLoss float64
	for i := 1; i < len(closes); i++ {
		sumGain += gains[i]
		sumLoss += losses[i]
		if i > period {
			sumGain -= gains[i-period]
			sumLoss -= losses[i-period]
		}
		if i < period {
			continue
		}
		if sumLoss <= 1e-12 {
			out[i] = 100
			continue
		}
		rs := sumGain / sumLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD holds the MACD line, its signal line and their difference.
type MACD struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACDSeries computes MACD(fast, slow, signal) over closes.
func MACDSeries(closes []float64, fast, slow, signal int) MACD {
	f := EMASeries(closes, fast)
	s := EMASeries(closes, slow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = f[i] - s[i]
	}
	sig := EMASeries(line, signal)
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return MACD{Line: line, Signal: sig, Histogram: hist}
}

// RSISignal interprets an RSI reading.
func RSISignal(rsi float64) string {
	switch {
	case rsi >= 70:
		return "Overbought: Strong potential for reversal downward"
	case rsi <= 30:
		return "Oversold: Strong potential for reversal upward"
	case rsi > 50:
		return "Bullish: RSI trending upward but not yet overbought"
	case rsi < 50:
		return "Bearish: RSI trending downward but not yet oversold"
	default:
		return "Neutral: RSI balanced at 50"
	}
}

// MACDSignal labels the relation of the MACD line to its signal line.
func MACDSignal(line, signal float64) string {
	switch {
	case line > signal:
		return "Bullish Crossover"
	case line < signal:
		return "Bearish Crossover"
	default:
		return "No Signal"
	}
}

// TrendSignal compares a price with a moving average.
func TrendSignal(price, avg float64) string {
	switch {
	case price > avg:
		return "Price above average: uptrend"
	case price < avg:
		return "Price below average: downtrend"
	default:
		return "Price at average"
	}
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
