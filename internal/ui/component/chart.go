package component

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"tidder/internal/domain"
)

// DefaultCategoryKey is the x-axis field of a line chart.
const DefaultCategoryKey = "date"

const labelWidth = 10

// ChartMode is how a Chart renders its series.
type ChartMode int

const (
	ChartEmpty ChartMode = iota
	ChartLine
	ChartCandle
)

func (m ChartMode) String() string {
	switch m {
	case ChartLine:
		return "line"
	case ChartCandle:
		return "candle"
	default:
		return "empty"
	}
}

// Chart renders a line or candle series.
type Chart struct {
	Series      domain.Series
	CategoryKey string
	Width       int
	Height      int
}

// Mode reports the render mode chosen from the series kind.
func (c Chart) Mode() ChartMode {
	switch {
	case c.Series.Len() == 0:
		return ChartEmpty
	case c.Series.Kind == domain.SeriesCandle:
		return ChartCandle
	default:
		return ChartLine
	}
}

func (c Chart) View() string {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = 60
	}
	if h <= 0 {
		h = 12
	}
	switch c.Mode() {
	case ChartCandle:
		return c.candleView(w, h)
	case ChartLine:
		return c.lineView(w, h)
	default:
		return DimStyle.Render("  No chart data available")
	}
}

func (c Chart) categoryKey() string {
	if c.CategoryKey == "" {
		return DefaultCategoryKey
	}
	return c.CategoryKey
}

func (c Chart) lineView(w, h int) string {
	pts := c.Series.Line
	caption := fmt.Sprintf("%s by %s", c.Series.ValueKey(), c.categoryKey())
	if first, last := pts[0].Date, pts[len(pts)-1].Date; first != "" && last != "" {
		caption += fmt.Sprintf("  %s to %s", first, last)
	}
	return asciigraph.Plot(c.Series.Values(),
		asciigraph.Height(h),
		asciigraph.Width(max(1, w-labelWidth-2)),
		asciigraph.Precision(2),
		asciigraph.Caption(caption),
	)
}

// candleView draws the most recent candles that fit, one column each: wick
// as │ over the high/low range and body as ┃ over open/close.
func (c Chart) candleView(w, h int) string {
	candles := c.Series.Candles
	if n := max(1, w-labelWidth-1); len(candles) > n {
		candles = candles[len(candles)-n:]
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, k := range candles {
		lo = min(lo, k.Low)
		hi = max(hi, k.High)
	}
	// A flat range sits on the middle row, labelled with its one value.
	flat := hi == lo
	mid := (h - 1) / 2
	row := func(p float64) int {
		if flat {
			return mid
		}
		return int(math.Round((hi - p) / (hi - lo) * float64(h-1)))
	}

	var b strings.Builder
	for r := 0; r < h; r++ {
		switch {
		case flat && r == mid:
			fmt.Fprintf(&b, "%*.2f ", labelWidth, lo)
		case !flat && r == 0:
			fmt.Fprintf(&b, "%*.2f ", labelWidth, hi)
		case !flat && r == h-1:
			fmt.Fprintf(&b, "%*.2f ", labelWidth, lo)
		default:
			b.WriteString(strings.Repeat(" ", labelWidth+1))
		}
		for _, k := range candles {
			bodyTop, bodyBot := row(max(k.Open, k.Close)), row(min(k.Open, k.Close))
			switch {
			case r >= bodyTop && r <= bodyBot:
				if k.Up() {
					b.WriteString(GainStyle.Render("┃"))
				} else {
					b.WriteString(LossStyle.Render("┃"))
				}
			case r >= row(k.High) && r <= row(k.Low):
				b.WriteString(wickStyle.Render("│"))
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}

	caption := fmt.Sprintf("OHLC by %s  %s to %s", c.categoryKey(), candles[0].Date, candles[len(candles)-1].Date)
	b.WriteString(strings.Repeat(" ", labelWidth+1) + DimStyle.Render(caption))
	return b.String()
}
