package storage

import (
	"io"
	"strconv"
	"strings"
	"time"

	"studio-insights/models"
)

const utf8BOM = "\uFEFF"

// ExcelCSVWriter exports the CSV content for spreadsheet import: a UTF-8 BOM,
// and "SHEET: <name>" marker lines in place of real worksheets. Use XLSXWriter
// for an actual workbook.
type ExcelCSVWriter struct{}

func (e *ExcelCSVWriter) Extension() string { return "csv" }

func (e *ExcelCSVWriter) Export(w io.Writer, data *models.ExtractedData) error {
	out := newCSVLines(w)
	out.raw(utf8BOM)

	out.raw("SHEET: Summary\n")
	out.record("Export Date", time.Now().Format(time.RFC3339))
	out.record("Crawl ID", data.Summary.CrawlID)
	out.record("Total Tables", strconv.Itoa(len(data.Tables)))
	out.record("Total Metrics", strconv.Itoa(len(data.Metrics)))
	out.record("Pages", strings.Join(data.Summary.Pages, "; "))
	out.record("Locations", strings.Join(data.Summary.Locations, "; "))

	out.blank()
	out.raw("SHEET: Metrics\n")
	out.record(metricHeaders...)
	for _, m := range data.Metrics {
		out.record(metricRow(m)...)
	}

	for _, t := range data.Tables {
		out.blank()
		out.raw("SHEET: " + sheetLabel(t) + "\n")
		out.record("Location", t.Location)
		out.record("Tab", tabPath(t))
		writeTableRecords(out, t)
	}

	return out.flush()
}

// sheetLabel is the human name of a table's sheet.
func sheetLabel(t models.ExtractedTable) string {
	if t.Location == "" {
		return t.Title
	}
	return t.Title + " - " + t.Location
}
