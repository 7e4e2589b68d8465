package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"studio-insights/models"
	"studio-insights/utils"
)

// SalesMetrics are the headline numbers over a set of sales records.
type SalesMetrics struct {
	TotalRevenue            float64 `json:"totalRevenue"`
	TotalTransactions       int     `json:"totalTransactions"`
	AverageTransactionValue float64 `json:"averageTransactionValue"`
	TotalDiscount           float64 `json:"totalDiscount"`
	NetRevenue              float64 `json:"netRevenue"`
}

// CalculateSalesMetrics sums grossRevenue (paymentValue when grossRevenue is
// absent) and discountAmount. An empty input yields all zeros.
func CalculateSalesMetrics(records []models.Record) SalesMetrics {
	var m SalesMetrics
	for _, r := range records {
		m.TotalRevenue += saleRevenue(r)
		m.TotalDiscount += Num(r, "discountAmount")
	}
	m.TotalTransactions = len(records)
	m.AverageTransactionValue = safeDiv(m.TotalRevenue, float64(m.TotalTransactions))
	m.NetRevenue = m.TotalRevenue - m.TotalDiscount
	return m
}

// NamedValues lists the metrics in display order, keyed by camelCase name.
func (m SalesMetrics) NamedValues() []NamedValue {
	return []NamedValue{
		{Key: "totalRevenue", Value: utils.Round2(m.TotalRevenue)},
		{Key: "totalTransactions", Value: m.TotalTransactions},
		{Key: "averageTransactionValue", Value: utils.Round2(m.AverageTransactionValue)},
		{Key: "totalDiscount", Value: utils.Round2(m.TotalDiscount)},
		{Key: "netRevenue", Value: utils.Round2(m.NetRevenue)},
	}
}

// GetTopN returns up to n records ordered by field, highest first. The input
// slice is not reordered; ties keep their input order.
func GetTopN(records []models.Record, field string, n int) []models.Record {
	if n <= 0 || len(records) == 0 {
		return []models.Record{}
	}

	sorted := make([]models.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Num(sorted[i], field) > Num(sorted[j], field)
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// PrintSummary writes a console recap of a crawl: totals, then the metrics of
// each category for the first crawled location, and the tables that were
// produced.
func PrintSummary(w io.Writer, data *models.ExtractedData) {
	location := AllLocations
	if len(data.Summary.Locations) > 0 {
		location = data.Summary.Locations[0]
	}

	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 STUDIO INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Crawl ID   : %s\n", data.Summary.CrawlID)
	fmt.Fprintf(w, "  Tables     : \033[1m%d\033[0m\n", data.Summary.TotalTables)
	fmt.Fprintf(w, "  Metrics    : \033[1m%d\033[0m\n", data.Summary.TotalMetrics)
	fmt.Fprintf(w, "  Locations  : %s\n", strings.Join(data.Summary.Locations, " | "))
	fmt.Fprintf(w, "  Showing    : %s\n", location)
	if len(data.Summary.Failures) > 0 {
		fmt.Fprintf(w, "  Failures   : \033[1;31m%d\033[0m\n", len(data.Summary.Failures))
	}
	fmt.Fprintln(w)

	for _, cat := range metricCategories(data.Metrics, location) {
		fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", cat)
		fmt.Fprintf(w, "  %s\n", thin)
		for _, m := range data.Metrics {
			if m.Category != cat || m.Location != location {
				continue
			}
			fmt.Fprintf(w, "  %-32s \033[1;32m%s\033[0m\n", truncate(m.Title, 32), utils.FormatCell(m.Value, m.Title))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Tables by Page\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	counts := GroupByFunc(tablesAsRecords(data.Tables), func(r models.Record) string {
		return utils.Stringify(r["page"])
	})
	for _, page := range counts.Keys() {
		n := len(counts.Get(page))
		bar := strings.Repeat("█", min(n, 40))
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(page, 28), bar, n)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func metricCategories(metrics []models.ExtractedMetric, location string) []string {
	seen := utils.NewStringSet()
	var out []string
	for _, m := range metrics {
		if m.Location == location && seen.Add(m.Category) {
			out = append(out, m.Category)
		}
	}
	return out
}

func tablesAsRecords(tables []models.ExtractedTable) []models.Record {
	out := make([]models.Record, 0, len(tables))
	for _, t := range tables {
		out = append(out, models.Record{"page": t.Metadata.Page, "title": t.Title})
	}
	return out
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
