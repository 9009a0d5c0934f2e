package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStockSummaryChangeAlias(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"change", `{"symbol":"TCS","price":3500,"change":1.8}`, 1.8},
		{"changePercent", `{"symbol":"TCS","price":3500,"changePercent":-0.5}`, -0.5},
		{"both prefers alias", `{"symbol":"TCS","change":1,"changePercent":2}`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s StockSummary
			if err := json.Unmarshal([]byte(tt.in), &s); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if s.Symbol != "TCS" {
				t.Errorf("Symbol = %q, want TCS", s.Symbol)
			}
			if s.Change != tt.want {
				t.Errorf("Change = %v, want %v", s.Change, tt.want)
			}
		})
	}
}

func TestQuoteRecordChangePercent(t *testing.T) {
	q := QuoteRecord{Price: 2500, PrevClose: 2455.8}
	pct, ok := q.ChangePercent()
	if !ok {
		t.Fatal("ChangePercent ok = false, want true")
	}
	if pct != 1.8 {
		t.Errorf("ChangePercent = %v, want 1.8", pct)
	}

	if _, ok := (QuoteRecord{Price: 10}).ChangePercent(); ok {
		t.Error("ChangePercent without previous close: ok = true, want false")
	}
}

func TestSeriesDecodeLine(t *testing.T) {
	var s Series
	in := `[{"date":"2024-01-01","close":100},{"date":"2024-01-02","close":101.5}]`
	if err := json.Unmarshal([]byte(in), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Kind != SeriesLine {
		t.Fatalf("Kind = %v, want line", s.Kind)
	}
	if s.Len() != 2 || s.Line[1].Value != 101.5 || s.Line[1].Date != "2024-01-02" {
		t.Errorf("Line = %+v", s.Line)
	}
	if s.ValueKey() != "close" {
		t.Errorf("ValueKey = %q, want close", s.ValueKey())
	}
}

func TestSeriesDecodeCustomKey(t *testing.T) {
	var s Series
	if err := json.Unmarshal([]byte(`[{"date":"d1","value":3},{"date":"d2","value":4}]`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.ValueKey() != "value" {
		t.Errorf("ValueKey = %q, want value", s.ValueKey())
	}
	if got := s.Values(); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("Values = %v", got)
	}
}

func TestSeriesDecodeCandle(t *testing.T) {
	var s Series
	in := `[{"date":"d1","open":10,"high":12,"low":9,"close":11},
	        {"date":"d2","open":11,"high":11.5,"low":8,"close":8.5}]`
	if err := json.Unmarshal([]byte(in), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Kind != SeriesCandle || s.Len() != 2 {
		t.Fatalf("Kind = %v Len = %d, want candle/2", s.Kind, s.Len())
	}
	if !s.Candles[0].Up() || s.Candles[1].Up() {
		t.Errorf("Up() = %v/%v, want true/false", s.Candles[0].Up(), s.Candles[1].Up())
	}
}

func TestSeriesDecodeCandleWithoutRange(t *testing.T) {
	var s Series
	if err := json.Unmarshal([]byte(`[{"date":"d1","open":10,"close":12}]`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Kind != SeriesCandle {
		t.Fatalf("Kind = %v, want candle", s.Kind)
	}
	if c := s.Candles[0]; c.High != 12 || c.Low != 10 {
		t.Errorf("High/Low = %v/%v, want 12/10", c.High, c.Low)
	}
}

func TestSeriesDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"candle missing close", `[{"date":"d1","open":1,"high":2,"low":0.5}]`, `missing "close"`},
		{"candle bad high", `[{"date":"d1","open":1,"high":"x","close":1.5}]`, `field "high"`},
		{"mixed shapes", `[{"date":"d1","close":1},{"date":"d2","open":1,"high":2,"low":0,"close":1}]`, "candle record in line series"},
		{"line missing value", `[{"date":"d1","close":1},{"date":"d2"}]`, `missing "close"`},
		{"no numeric field", `[{"date":"d1","label":"x"}]`, "no numeric value field"},
		{"not an array", `{"close":1}`, "decoding series"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Series
			err := json.Unmarshal([]byte(tt.in), &s)
			if err == nil {
				t.Fatal("Unmarshal succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestSeriesEmpty(t *testing.T) {
	for _, in := range []string{`[]`, `null`} {
		var s Series
		if err := json.Unmarshal([]byte(in), &s); err != nil {
			t.Fatalf("Unmarshal(%s): %v", in, err)
		}
		if s.Len() != 0 {
			t.Errorf("Unmarshal(%s) Len = %d, want 0", in, s.Len())
		}
	}
}

func TestSeriesEncodeShape(t *testing.T) {
	line := NewLineSeries("", []LinePoint{{Date: "d1", Value: 5}})
	b, err := json.Marshal(line)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `[{"close":5,"date":"d1"}]` {
		t.Errorf("line JSON = %s", b)
	}

	b, err = json.Marshal(NewCandleSeries(nil))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `[]` {
		t.Errorf("empty candle JSON = %s, want []", b)
	}

	a := StockAnalysis{Symbol: "INFY", History: line, Candles: NewCandleSeries([]Candle{{Date: "d1", Open: 1, High: 2, Low: 0.5, Close: 1.5}})}
	b, err = json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal analysis: %v", err)
	}
	var back StockAnalysis
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal analysis: %v", err)
	}
	if back.History.Kind != SeriesLine || back.Candles.Kind != SeriesCandle {
		t.Errorf("kinds = %v/%v, want line/candle", back.History.Kind, back.Candles.Kind)
	}
	if back.MarketCap != nil {
		t.Errorf("MarketCap = %v, want nil", *back.MarketCap)
	}
}
