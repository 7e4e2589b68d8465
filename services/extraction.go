package services

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode"

	"studio-insights/models"
	"studio-insights/utils"
)

// AllLocations is the location label that disables location filtering.
const AllLocations = "All Locations"

// Groups is the result of GroupBy: record partitions keyed by group value,
// iterated in first-occurrence order.
type Groups struct {
	order  []string
	groups map[string][]models.Record
}

// GroupBy partitions records by the string value of key. Missing, empty,
// zero and false values fall into the Unknown group.
func GroupBy(records []models.Record, key string) *Groups {
	return GroupByFunc(records, func(r models.Record) string {
		return groupKey(r[key])
	})
}

// GroupByFunc partitions records by the key returned from fn.
func GroupByFunc(records []models.Record, fn func(models.Record) string) *Groups {
	g := &Groups{groups: make(map[string][]models.Record)}
	for _, r := range records {
		k := fn(r)
		if _, exists := g.groups[k]; !exists {
			g.order = append(g.order, k)
		}
		g.groups[k] = append(g.groups[k], r)
	}
	return g
}

// Keys returns the group keys in first-occurrence order.
func (g *Groups) Keys() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Get returns the records in group k.
func (g *Groups) Get(k string) []models.Record {
	return g.groups[k]
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	return len(g.order)
}

// Flatten concatenates all groups in key order.
func (g *Groups) Flatten() []models.Record {
	var out []models.Record
	for _, k := range g.order {
		out = append(out, g.groups[k]...)
	}
	return out
}

// groupKey treats nil, false, "" and every numeric zero as missing.
func groupKey(v any) string {
	switch val := v.(type) {
	case nil:
		return Unknown
	case bool:
		if !val {
			return Unknown
		}
	case float64, float32, int, int64, int32, json.Number:
		if f, ok := toFloat(val); ok && f == 0 {
			return Unknown
		}
	}
	s := utils.Stringify(v)
	if s == "" {
		return Unknown
	}
	return s
}

// FilterByLocation keeps records belonging to location. An empty location or
// AllLocations returns records unchanged. Kenkere and Bengaluru targets match
// by case-insensitive substring because that studio appears under several spellings in the
// source data; every other location must match exactly.
func FilterByLocation(records []models.Record, location string) []models.Record {
	if location == "" || location == AllLocations {
		return records
	}

	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if MatchesLocation(LocationOf(r), location) {
			out = append(out, r)
		}
	}
	return out
}

// MatchesLocation applies the FilterByLocation rule to a single location value.
func MatchesLocation(recordLocation, target string) bool {
	if target == "" || target == AllLocations {
		return true
	}
	for _, alias := range []string{"kenkere", "bengaluru"} {
		if strings.Contains(strings.ToLower(target), alias) {
			return strings.Contains(strings.ToLower(recordLocation), alias)
		}
	}
	return recordLocation == target
}

// TableOptions configures ExtractTableFromData.
type TableOptions struct {
	Headers  []string
	Location string
	Tab      string
	SubTab   string
	Page     string
	// MaxRows truncates the table when positive.
	MaxRows int
}

// ExtractTableFromData lists records as table rows. Without explicit
// headers the columns are the first record's fields in lexical order; later
// records with other fields are not reflected in the columns.
func ExtractTableFromData(title string, records []models.Record, opts TableOptions) models.ExtractedTable {
	table := models.ExtractedTable{
		Title:    title,
		Location: opts.Location,
		Tab:      opts.Tab,
		SubTab:   opts.SubTab,
		Headers:  []string{},
		Rows:     [][]string{},
		Metadata: models.TableMetadata{
			RecordCount: len(records),
			Page:        opts.Page,
			ExtractedAt: time.Now(),
		},
	}

	if len(opts.Headers) > 0 {
		table.Headers = append(table.Headers, opts.Headers...)
	}
	if len(records) == 0 {
		return table
	}
	if len(opts.Headers) == 0 {
		table.Headers = sortedKeys(records[0])
	}

	rows := records
	if opts.MaxRows > 0 && len(rows) > opts.MaxRows {
		rows = rows[:opts.MaxRows]
		table.Metadata.Truncated = true
		table.Metadata.TotalRows = len(records)
	}

	table.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		row := make([]string, len(table.Headers))
		for i, h := range table.Headers {
			row[i] = utils.Stringify(r[h])
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func sortedKeys(r models.Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MetricValue is a metric with an optional period-over-period change.
// ExtractMetrics unpacks it instead of using it as the raw value.
type MetricValue struct {
	Value  any
	Change *float64
}

// NamedValue is one entry for ExtractMetricList.
type NamedValue struct {
	Key   string
	Value any
}

// MetricOptions configures ExtractMetrics.
type MetricOptions struct {
	Category string
	Location string
	Tab      string
	Page     string
}

// ExtractMetrics turns a flat object into metrics, titleizing camelCase keys.
// Keys are processed in lexical order.
func ExtractMetrics(metrics map[string]any, opts MetricOptions) []models.ExtractedMetric {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]NamedValue, 0, len(keys))
	for _, k := range keys {
		list = append(list, NamedValue{Key: k, Value: metrics[k]})
	}
	return ExtractMetricList(list, opts)
}

// ExtractMetricList is ExtractMetrics with caller-controlled order.
func ExtractMetricList(values []NamedValue, opts MetricOptions) []models.ExtractedMetric {
	out := make([]models.ExtractedMetric, 0, len(values))
	for _, nv := range values {
		value, change := unpackMetric(nv.Value)
		out = append(out, models.ExtractedMetric{
			Title:    Titleize(nv.Key),
			Value:    value,
			Change:   change,
			Location: opts.Location,
			Tab:      opts.Tab,
			Category: opts.Category,
			Metadata: models.MetricMetadata{Page: opts.Page},
		})
	}
	return out
}

func unpackMetric(v any) (any, *float64) {
	switch val := v.(type) {
	case MetricValue:
		return val.Value, val.Change
	case *MetricValue:
		if val == nil {
			return nil, nil
		}
		return val.Value, val.Change
	case map[string]any:
		inner, ok := val["value"]
		if !ok {
			return v, nil
		}
		var change *float64
		if c, ok := toFloat(val["change"]); ok {
			change = models.Float(c)
		}
		return inner, change
	}
	return v, nil
}

// Titleize converts a camelCase key to space-separated title case:
// "totalRevenue" becomes "Total Revenue". Keys that already contain spaces
// are returned trimmed.
func Titleize(key string) string {
	key = strings.TrimSpace(key)
	if strings.Contains(key, " ") {
		return key
	}

	var b strings.Builder
	for i, r := range key {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
