package models

import "time"

// TableMetadata describes where a table came from.
// RecordCount is the number of source records aggregated into the table,
// which is not necessarily len(Rows) for summary tables.
type TableMetadata struct {
	RecordCount int       `json:"recordCount"`
	Page        string    `json:"page,omitempty"`
	Truncated   bool      `json:"truncated,omitempty"`
	TotalRows   int       `json:"totalRows,omitempty"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// ExtractedTable is a flattened, already-aggregated table ready for rendering
// or export.
type ExtractedTable struct {
	Title    string        `json:"title"`
	Location string        `json:"location,omitempty"`
	Tab      string        `json:"tab,omitempty"`
	SubTab   string        `json:"subTab,omitempty"`
	Headers  []string      `json:"headers"`
	Rows     [][]string    `json:"rows"`
	Metadata TableMetadata `json:"metadata"`
}

// Valid reports whether every row has exactly one cell per header.
func (t *ExtractedTable) Valid() bool {
	for _, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return false
		}
	}
	return true
}

// MetricMetadata carries provenance for a metric.
type MetricMetadata struct {
	Page string `json:"page,omitempty"`
	Unit string `json:"unit,omitempty"`
}

// ExtractedMetric is a single named KPI. Value is either numeric (float64,
// int) or a pre-formatted string. Change, when set, is a period-over-period
// delta in percent.
type ExtractedMetric struct {
	Title    string         `json:"title"`
	Value    any            `json:"value"`
	Change   *float64       `json:"change,omitempty"`
	Location string         `json:"location,omitempty"`
	Tab      string         `json:"tab,omitempty"`
	Category string         `json:"category"`
	Metadata MetricMetadata `json:"metadata"`
}

// Summary describes one crawl.
type Summary struct {
	CrawlID      string    `json:"crawlId"`
	TotalTables  int       `json:"totalTables"`
	TotalMetrics int       `json:"totalMetrics"`
	Pages        []string  `json:"pages"`
	Locations    []string  `json:"locations"`
	Timestamp    time.Time `json:"timestamp"`
	Failures     []string  `json:"failures,omitempty"`
}

// ExtractedData is the result of one crawl. It is built fresh on every crawl
// and is not modified after Crawl returns.
type ExtractedData struct {
	Tables  []ExtractedTable  `json:"tables"`
	Metrics []ExtractedMetric `json:"metrics"`
	Summary Summary           `json:"summary"`
}

// Float returns a pointer to v, for optional metric changes.
func Float(v float64) *float64 {
	return &v
}
