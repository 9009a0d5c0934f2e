package component

import (
	"fmt"
	"strconv"
	"strings"

	"tidder/internal/domain"
)

// Dash is shown in place of an absent value.
const Dash = "—"

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatLarge formats a large quantity with T/B/M/K suffixes.
func FormatLarge(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// FormatValue renders a card value: floats to two decimals, strings
// verbatim, nil (including a nil *float64) as Dash.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return Dash
	case float64:
		return fmt.Sprintf("%.2f", x)
	case *float64:
		if x == nil {
			return Dash
		}
		return fmt.Sprintf("%.2f", *x)
	case int:
		return FormatInt(int64(x))
	case int64:
		return FormatInt(x)
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// FormatChange renders a percent change with its polarity glyph, e.g.
// "▲ 1.8%" or "▼ -1.2%". The percent is rounded to two decimals.
// A change that rounds to zero is shown as "▲ 0%".
func FormatChange(pct float64) string {
	r := domain.Round2(pct)
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	v := strconv.FormatFloat(r, 'f', -1, 64)
	if PolarityOf(pct) == Down {
		return "▼ " + v + "%"
	}
	return "▲ " + v + "%"
}

// PadOrTrunc pads s with spaces or truncates it to exactly width runes.
func PadOrTrunc(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
