package services

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"studio-insights/models"
	"studio-insights/utils"
)

// Unknown is the category used when a categorical field is missing.
const Unknown = "Unknown"

var (
	// numberRegexp captures the first numeric run in a decorated value ("₹ 1,200 /-").
	numberRegexp = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)
	// decorationRegexp matches what may surround a number: currency and unit marks.
	decorationRegexp = regexp.MustCompile(`^(?i:\s|₹|\$|rs\.?|inr|/-|%)*$`)

	dateLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02/01/2006, 15:04:05",
		"02/01/2006 15:04:05",
		"02/01/2006",
		"2006-01",
	}

	locationKeys = []string{"calculatedLocation", "location", "center", "homeLocation", "firstVisitLocation"}
)

// Num returns the first of keys holding a number, or 0.
// Numeric strings, including currency- or percent-decorated ones, count as numbers.
func Num(r models.Record, keys ...string) float64 {
	for _, k := range keys {
		if f, ok := toFloat(r[k]); ok {
			return f
		}
	}
	return 0
}

// Has reports whether any of keys holds a non-empty value.
func Has(r models.Record, keys ...string) bool {
	for _, k := range keys {
		if strings.TrimSpace(utils.Stringify(r[k])) != "" {
			return true
		}
	}
	return false
}

// Text returns the first of keys holding a non-blank value, whitespace
// collapsed, or Unknown.
func Text(r models.Record, keys ...string) string {
	return TextOr(r, Unknown, keys...)
}

// TextOr is Text with an explicit default.
func TextOr(r models.Record, def string, keys ...string) string {
	for _, k := range keys {
		if s := normaliseText(utils.Stringify(r[k])); s != "" {
			return s
		}
	}
	return def
}

// Flag interprets yes/no style fields ("Yes", "true", 1, "Converted").
func Flag(r models.Record, keys ...string) bool {
	for _, k := range keys {
		switch v := r[k].(type) {
		case bool:
			return v
		case nil:
			continue
		default:
			s := strings.ToLower(normaliseText(utils.Stringify(v)))
			switch s {
			case "":
				continue
			case "yes", "y", "true", "1", "converted", "retained", "new":
				return true
			default:
				return false
			}
		}
	}
	return false
}

// Date returns the first of keys that parses as a date.
func Date(r models.Record, keys ...string) (time.Time, bool) {
	for _, k := range keys {
		raw := strings.TrimSpace(utils.Stringify(r[k]))
		if raw == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// MonthKey formats t as "2006-01", the bucket used for month-over-month trends.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// LocationOf returns the studio a record belongs to. calculatedLocation wins,
// then the plain location field and the per-dataset variants.
func LocationOf(r models.Record) string {
	return TextOr(r, "", locationKeys...)
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case bool:
		return 0, false
	case []byte:
		return toFloat(string(val))
	case string:
		if f, ok := utils.ParseNumber(val); ok {
			return f, true
		}
		loc := numberRegexp.FindStringIndex(val)
		if loc == nil || !decorationRegexp.MatchString(val[:loc[0]]) || !decorationRegexp.MatchString(val[loc[1]:]) {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(val[loc[0]:loc[1]], ",", ""), 64)
		return f, err == nil
	default:
		return toFloat(utils.Stringify(val))
	}
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

// ratio returns num/den*100, or 0 when den is 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * 100
}

// safeDiv returns num/den, or 0 when den is 0.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
