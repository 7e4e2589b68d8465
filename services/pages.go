package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"studio-insights/models"
	"studio-insights/utils"
)

// Page is one dashboard page the crawler can extract. The set of pages is
// fixed; use AllPages or ParsePage to obtain one.
type Page struct {
	name     string
	datasets []models.Dataset
	run      func(*pageContext)
}

// Name returns the page's display name.
func (p Page) Name() string { return p.name }

// Datasets returns the input datasets the page reads.
func (p Page) Datasets() []models.Dataset {
	out := make([]models.Dataset, len(p.datasets))
	copy(out, p.datasets)
	return out
}

// IsZero reports whether p is the zero Page.
func (p Page) IsZero() bool { return p.run == nil }

func (p Page) String() string { return p.name }

var (
	PageExecutiveSummary = Page{
		name:     "Executive Summary",
		datasets: []models.Dataset{models.DatasetSales, models.DatasetSessions, models.DatasetCheckins, models.DatasetNewClients, models.DatasetLeads},
		run:      executiveSummary,
	}
	PageSalesAnalytics = Page{
		name:     "Sales Analytics",
		datasets: []models.Dataset{models.DatasetSales},
		run:      salesAnalytics,
	}
	PageClientRetention = Page{
		name:     "Client Retention",
		datasets: []models.Dataset{models.DatasetNewClients},
		run:      clientRetention,
	}
	PageTrainerPerformance = Page{
		name:     "Trainer Performance",
		datasets: []models.Dataset{models.DatasetPayroll},
		run:      trainerPerformance,
	}
	PageClassAttendance = Page{
		name:     "Class Attendance",
		datasets: []models.Dataset{models.DatasetSessions, models.DatasetCheckins},
		run:      classAttendance,
	}
	PageClassFormats = Page{
		name:     "Class Formats",
		datasets: []models.Dataset{models.DatasetSessions},
		run:      classFormats,
	}
	PageDiscounts = Page{
		name:     "Discounts",
		datasets: []models.Dataset{models.DatasetDiscounts, models.DatasetSales},
		run:      discounts,
	}
	PageSessions = Page{
		name:     "Sessions",
		datasets: []models.Dataset{models.DatasetSessions},
		run:      sessions,
	}
	PageExpirations = Page{
		name:     "Expirations",
		datasets: []models.Dataset{models.DatasetExpirations},
		run:      expirations,
	}
	PageLateCancellations = Page{
		name:     "Late Cancellations",
		datasets: []models.Dataset{models.DatasetLateCancellations},
		run:      lateCancellations,
	}
	PageLeads = Page{
		name:     "Leads",
		datasets: []models.Dataset{models.DatasetLeads},
		run:      leads,
	}
)

// AllPages returns every registered page in dashboard order.
func AllPages() []Page {
	return []Page{
		PageExecutiveSummary,
		PageSalesAnalytics,
		PageClientRetention,
		PageTrainerPerformance,
		PageClassAttendance,
		PageClassFormats,
		PageDiscounts,
		PageSessions,
		PageExpirations,
		PageLateCancellations,
		PageLeads,
	}
}

// ParsePage looks a page up by name. Matching ignores case and treats
// hyphens and underscores as spaces, so "sales-analytics" works.
func ParsePage(name string) (Page, error) {
	want := pageSlug(name)
	for _, p := range AllPages() {
		if pageSlug(p.name) == want {
			return p, nil
		}
	}
	return Page{}, fmt.Errorf("unknown page %q", name)
}

// ParsePages parses every name, failing on the first unknown one.
func ParsePages(names []string) ([]Page, error) {
	pages := make([]Page, 0, len(names))
	for _, n := range names {
		p, err := ParsePage(n)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func pageSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return normaliseText(s)
}

// pageContext is the working state of one (page, location) extraction.
type pageContext struct {
	page     Page
	location string
	opts     CrawlOptions
	sources  models.DataSources

	tables  []models.ExtractedTable
	metrics []models.ExtractedMetric
}

// data returns the dataset filtered to the context's location.
func (pc *pageContext) data(ds models.Dataset) []models.Record {
	return FilterByLocation(pc.sources.Get(ds), pc.location)
}

func (pc *pageContext) wantMetrics() bool { return *pc.opts.IncludeMetrics }
func (pc *pageContext) wantTables() bool  { return *pc.opts.IncludeTables }

func (pc *pageContext) addMetrics(category string, values ...NamedValue) {
	if !pc.wantMetrics() {
		return
	}
	pc.metrics = append(pc.metrics, ExtractMetricList(values, MetricOptions{
		Category: category,
		Location: pc.location,
		Tab:      pc.page.name,
		Page:     pc.page.name,
	})...)
}

// addSummary adds an aggregated table. Summary tables are never truncated.
func (pc *pageContext) addSummary(title, subTab string, headers []string, rows [][]string, recordCount int) {
	if !pc.wantTables() {
		return
	}
	if rows == nil {
		rows = [][]string{}
	}
	t := ExtractTableFromData(title, nil, TableOptions{
		Headers:  headers,
		Location: pc.location,
		Tab:      pc.page.name,
		SubTab:   subTab,
		Page:     pc.page.name,
	})
	t.Rows = rows
	t.Metadata.RecordCount = recordCount
	pc.tables = append(pc.tables, t)
}

// addRaw lists records as a table, truncated to MaxRowsPerTable.
func (pc *pageContext) addRaw(title, subTab string, records []models.Record, headers []string) {
	if !pc.wantTables() {
		return
	}
	pc.tables = append(pc.tables, ExtractTableFromData(title, records, TableOptions{
		Headers:  headers,
		Location: pc.location,
		Tab:      pc.page.name,
		SubTab:   subTab,
		Page:     pc.page.name,
		MaxRows:  pc.opts.MaxRowsPerTable,
	}))
}

// num renders an aggregate for a table cell.
func num(v float64) string {
	return utils.Stringify(utils.Round2(v))
}

func count(n int) string {
	return strconv.Itoa(n)
}

// sortDesc orders rows by key, highest first, keeping input order for ties.
func sortDesc[T any](rows []T, key func(T) float64) {
	sort.SliceStable(rows, func(i, j int) bool {
		return key(rows[i]) > key(rows[j])
	})
}

// countBy is the common "label, count, share" breakdown.
func countBy(records []models.Record, label func(models.Record) string) [][]string {
	groups := GroupByFunc(records, label)
	type entry struct {
		key string
		n   int
	}
	entries := make([]entry, 0, groups.Len())
	for _, k := range groups.Keys() {
		entries = append(entries, entry{k, len(groups.Get(k))})
	}
	sortDesc(entries, func(e entry) float64 { return float64(e.n) })

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.key, count(e.n), num(ratio(float64(e.n), float64(len(records))))})
	}
	return rows
}

// distinct counts the distinct non-empty values of the first present key.
func distinct(records []models.Record, keys ...string) int {
	set := utils.NewStringSet()
	for _, r := range records {
		set.Add(TextOr(r, "", keys...))
	}
	return set.Size()
}
