package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySymbol prefixes every currency-formatted cell.
const CurrencySymbol = "₹"

// EmptyCell is rendered for nil or blank values.
const EmptyCell = "-"

// CellShape is the display transform chosen for a cell.
type CellShape int

const (
	ShapePlain CellShape = iota
	ShapePercent
	ShapeCurrency
	ShapeCount
	ShapeAverage
)

var (
	percentHints  = []string{"percentage", "%", "rate"}
	currencyHints = []string{"revenue", "amount", "value", "discount", "mrp", "price", "paid", "ltv"}
	countHints    = []string{"transaction", "customer", "count", "total", "member", "sessions"}
	averageHints  = []string{"avg", "average"}

	printer = message.NewPrinter(language.English)
)

// ShapeFor picks the display transform from the column header and the raw
// cell text. Percent wins over currency so that "Discount Rate" renders as a
// percentage.
func ShapeFor(header, raw string) CellShape {
	h := strings.ToLower(header)
	switch {
	case containsAny(h, percentHints) || strings.Contains(raw, "%"):
		return ShapePercent
	case containsAny(h, currencyHints) || strings.Contains(raw, CurrencySymbol):
		return ShapeCurrency
	case containsAny(h, countHints):
		return ShapeCount
	case containsAny(h, averageHints):
		return ShapeAverage
	}
	return ShapePlain
}

// FormatCell renders a single value for export. Every writer uses it, so a
// cell formats identically in CSV, Excel CSV, text and PDF output.
func FormatCell(value any, header string) string {
	raw := Stringify(value)
	if strings.TrimSpace(raw) == "" {
		return EmptyCell
	}

	num, ok := ParseNumber(raw)
	if !ok {
		return raw
	}

	switch ShapeFor(header, raw) {
	case ShapePercent:
		return FormatPercent(num)
	case ShapeCurrency, ShapeAverage:
		return FormatCurrency(num)
	default:
		return FormatNumber(num)
	}
}

// FormatCurrency renders v as a rounded, thousands-grouped rupee amount.
func FormatCurrency(v float64) string {
	n := roundHalfUp(v)
	if n < 0 {
		return "-" + CurrencySymbol + printer.Sprintf("%d", -n)
	}
	return CurrencySymbol + printer.Sprintf("%d", n)
}

// FormatPercent renders v rounded to an integer with a trailing %.
func FormatPercent(v float64) string {
	return strconv.FormatInt(roundHalfUp(v), 10) + "%"
}

// FormatNumber renders v as a rounded, thousands-grouped integer.
func FormatNumber(v float64) string {
	return printer.Sprintf("%d", roundHalfUp(v))
}

// FormatChange renders a period-over-period delta such as "+12.5%".
func FormatChange(change *float64) string {
	if change == nil || math.IsNaN(*change) || math.IsInf(*change, 0) {
		return EmptyCell
	}
	d := decimal.NewFromFloat(*change).Round(1)
	if d.IsPositive() {
		return "+" + d.StringFixed(1) + "%"
	}
	return d.StringFixed(1) + "%"
}

// ParseNumber parses a cell that is numeric once currency symbols, grouping
// commas and percent signs are removed.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, CurrencySymbol, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Stringify converts a cell value to text. nil becomes the empty string and
// floats use the shortest representation ("150", "7.6").
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Round2 rounds v to two decimals, half away from zero.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func roundHalfUp(v float64) int64 {
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
