package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// SeriesKind tags which variant a Series holds.
type SeriesKind int

const (
	SeriesLine SeriesKind = iota
	SeriesCandle
)

func (k SeriesKind) String() string {
	if k == SeriesCandle {
		return "candle"
	}
	return "line"
}

// DefaultValueKey is the record field plotted by a line series when none is
// given.
const DefaultValueKey = "close"

// LinePoint is one point of a line series.
type LinePoint struct {
	Date  string
	Value float64
}

// Candle is one OHLC period.
type Candle struct {
	Date  string  `json:"date"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Up reports whether the period closed at or above its open.
func (c Candle) Up() bool { return c.Close >= c.Open }

// Series is a time series in exactly one of two shapes. The shape is fixed
// when the series is built or decoded; Line is only set for SeriesLine and
// Candles only for SeriesCandle.
type Series struct {
	Kind    SeriesKind
	Key     string // value field of a line series
	Line    []LinePoint
	Candles []Candle
}

// NewLineSeries builds a line series plotting key (DefaultValueKey if empty).
func NewLineSeries(key string, points []LinePoint) Series {
	if key == "" {
		key = DefaultValueKey
	}
	return Series{Kind: SeriesLine, Key: key, Line: points}
}

// NewCandleSeries builds a candle series.
func NewCandleSeries(candles []Candle) Series {
	return Series{Kind: SeriesCandle, Candles: candles}
}

// Len returns the number of records.
func (s Series) Len() int {
	if s.Kind == SeriesCandle {
		return len(s.Candles)
	}
	return len(s.Line)
}

// ValueKey returns the plotted field of a line series.
func (s Series) ValueKey() string {
	if s.Key == "" {
		return DefaultValueKey
	}
	return s.Key
}

// Values returns the plotted values: closes for candles, the keyed value for
// lines.
func (s Series) Values() []float64 {
	if s.Kind == SeriesCandle {
		out := make([]float64, len(s.Candles))
		for i, c := range s.Candles {
			out[i] = c.Close
		}
		return out
	}
	out := make([]float64, len(s.Line))
	for i, p := range s.Line {
		out[i] = p.Value
	}
	return out
}

// MarshalJSON encodes the series as an array of flat records, the shape the
// data source API serves.
func (s Series) MarshalJSON() ([]byte, error) {
	if s.Kind == SeriesCandle {
		if s.Candles == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(s.Candles)
	}
	key := s.ValueKey()
	recs := make([]map[string]any, len(s.Line))
	for i, p := range s.Line {
		recs[i] = map[string]any{"date": p.Date, key: p.Value}
	}
	return json.Marshal(recs)
}

// UnmarshalJSON decodes an array of records. The first record decides the
// shape (an "open" field means candles); every later record must have the
// same shape or decoding fails. Candles need open and close; a missing high
// or low defaults to the body's extent.
func (s *Series) UnmarshalJSON(data []byte) error {
	*s = Series{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var recs []map[string]json.RawMessage
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("decoding series: %w", err)
	}
	if len(recs) == 0 {
		return nil
	}

	if _, ok := recs[0]["open"]; ok {
		s.Kind = SeriesCandle
		s.Candles = make([]Candle, 0, len(recs))
		for i, r := range recs {
			c, err := candleRecord(r)
			if err != nil {
				return fmt.Errorf("series record %d: %w", i, err)
			}
			s.Candles = append(s.Candles, c)
		}
		return nil
	}

	key := lineKey(recs[0])
	if key == "" {
		return fmt.Errorf("series record 0: no numeric value field")
	}
	s.Kind = SeriesLine
	s.Key = key
	s.Line = make([]LinePoint, 0, len(recs))
	for i, r := range recs {
		if _, ok := r["open"]; ok {
			return fmt.Errorf("series record %d: candle record in line series", i)
		}
		v, err := numField(r, key)
		if err != nil {
			return fmt.Errorf("series record %d: %w", i, err)
		}
		s.Line = append(s.Line, LinePoint{Date: dateField(r), Value: v})
	}
	return nil
}

func candleRecord(r map[string]json.RawMessage) (Candle, error) {
	c := Candle{Date: dateField(r)}
	var err error
	if c.Open, err = numField(r, "open"); err != nil {
		return c, err
	}
	if c.Close, err = numField(r, "close"); err != nil {
		return c, err
	}
	c.High, c.Low = max(c.Open, c.Close), min(c.Open, c.Close)
	if _, ok := r["high"]; ok {
		if c.High, err = numField(r, "high"); err != nil {
			return c, err
		}
	}
	if _, ok := r["low"]; ok {
		if c.Low, err = numField(r, "low"); err != nil {
			return c, err
		}
	}
	return c, nil
}

// lineKey picks "close" when present, otherwise the first numeric non-date
// field in name order.
func lineKey(r map[string]json.RawMessage) string {
	if _, ok := r[DefaultValueKey]; ok {
		return DefaultValueKey
	}
	keys := make([]string, 0, len(r))
	for k := range r {
		if k != "date" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := numField(r, k); err == nil {
			return k
		}
	}
	return ""
}

func numField(r map[string]json.RawMessage, name string) (float64, error) {
	raw, ok := r[name]
	if !ok {
		return 0, fmt.Errorf("missing %q", name)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("field %q: %w", name, err)
	}
	return v, nil
}

func dateField(r map[string]json.RawMessage) string {
	var d string
	if raw, ok := r["date"]; ok {
		_ = json.Unmarshal(raw, &d)
	}
	return d
}
