package storage

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"studio-insights/models"
	"studio-insights/utils"
)

var metricHeaders = []string{"Category", "Metric", "Value", "Change", "Location", "Tab", "Page"}

// CSVWriter exports a crawl as one CSV document: a commented preamble, the
// metrics block, then one block per table. Every value is double-quoted.
type CSVWriter struct{}

func (c *CSVWriter) Extension() string { return "csv" }

func (c *CSVWriter) Export(w io.Writer, data *models.ExtractedData) error {
	out := newCSVLines(w)

	out.comment("Studio Insights Export")
	out.comment("Exported: " + time.Now().Format(time.RFC3339))
	out.comment("Crawl ID: " + data.Summary.CrawlID)
	out.comment("Tables: " + strconv.Itoa(len(data.Tables)))
	out.comment("Metrics: " + strconv.Itoa(len(data.Metrics)))
	out.comment("Pages: " + strings.Join(data.Summary.Pages, "; "))
	out.comment("Locations: " + strings.Join(data.Summary.Locations, "; "))

	if len(data.Metrics) > 0 {
		out.blank()
		out.comment("Key Metrics")
		out.record(metricHeaders...)
		for _, m := range data.Metrics {
			out.record(metricRow(m)...)
		}
	}

	for _, t := range data.Tables {
		out.blank()
		out.comment(t.Title)
		out.comment("Location: " + t.Location)
		out.comment("Tab: " + tabPath(t))
		writeTableRecords(out, t)
	}

	return out.flush()
}

func metricRow(m models.ExtractedMetric) []string {
	return []string{
		m.Category,
		m.Title,
		utils.FormatCell(m.Value, m.Title),
		utils.FormatChange(m.Change),
		m.Location,
		m.Tab,
		m.Metadata.Page,
	}
}

func writeTableRecords(out *csvLines, t models.ExtractedTable) {
	out.record(t.Headers...)
	for _, row := range t.Rows {
		out.record(formatRow(t.Headers, row)...)
	}
}

// formatRow applies FormatCell to every cell using its column header.
func formatRow(headers, row []string) []string {
	cells := make([]string, len(row))
	for i, v := range row {
		h := ""
		if i < len(headers) {
			h = headers[i]
		}
		cells[i] = utils.FormatCell(v, h)
	}
	return cells
}

func tabPath(t models.ExtractedTable) string {
	if t.SubTab == "" {
		return t.Tab
	}
	return t.Tab + " / " + t.SubTab
}

// csvLines writes always-quoted CSV records plus "# " comment lines. The
// first write error sticks and is returned by flush.
type csvLines struct {
	w   *bufio.Writer
	err error
}

func newCSVLines(w io.Writer) *csvLines {
	return &csvLines{w: bufio.NewWriter(w)}
}

func (c *csvLines) raw(s string) {
	if c.err != nil {
		return
	}
	_, c.err = c.w.WriteString(s)
}

func (c *csvLines) record(fields ...string) {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	c.raw(b.String())
}

func (c *csvLines) comment(s string) {
	c.raw("# " + strings.ReplaceAll(s, "\n", " ") + "\n")
}

func (c *csvLines) blank() { c.raw("\n") }

func (c *csvLines) flush() error {
	if c.err != nil {
		return c.err
	}
	return c.w.Flush()
}
