package storage

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"studio-insights/models"
	"studio-insights/services"
	"studio-insights/utils"
)

const (
	textRuleWidth = 80
	maxColWidth   = 30
)

// TextWriter renders a crawl as a fixed-width plain-text report with boxed
// tables.
type TextWriter struct{}

func (t *TextWriter) Extension() string { return "txt" }

func (t *TextWriter) Export(w io.Writer, data *models.ExtractedData) error {
	var b strings.Builder
	rule := strings.Repeat("=", textRuleWidth)
	thin := strings.Repeat("-", textRuleWidth)

	banner := func(title string) {
		b.WriteString(rule + "\n" + title + "\n" + rule + "\n\n")
	}

	banner("STUDIO INSIGHTS REPORT")
	fmt.Fprintf(&b, "Exported:  %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Crawl ID:  %s\n", data.Summary.CrawlID)
	fmt.Fprintf(&b, "Tables:    %d\n", len(data.Tables))
	fmt.Fprintf(&b, "Metrics:   %d\n", len(data.Metrics))
	fmt.Fprintf(&b, "Pages:     %s\n", strings.Join(data.Summary.Pages, ", "))
	fmt.Fprintf(&b, "Locations: %s\n", strings.Join(data.Summary.Locations, " | "))
	if n := len(data.Summary.Failures); n > 0 {
		fmt.Fprintf(&b, "Failures:  %d\n", n)
	}
	b.WriteString("\n")

	if len(data.Metrics) > 0 {
		banner("KEY METRICS")
		for _, cat := range categories(data.Metrics) {
			b.WriteString("▶ " + cat + "\n")
			b.WriteString(thin + "\n")
			for _, m := range data.Metrics {
				if m.Category != cat {
					continue
				}
				b.WriteString(metricLine(m) + "\n")
			}
			b.WriteString("\n")
		}
	}

	if len(data.Tables) > 0 {
		banner("TABLES")
		for _, tb := range data.Tables {
			b.WriteString(tb.Title + "\n")
			fmt.Fprintf(&b, "Location: %s | Tab: %s\n", tb.Location, tabPath(tb))
			b.WriteString(renderBox(tb.Headers, formattedRows(tb)))
			if tb.Metadata.Truncated {
				fmt.Fprintf(&b, "(showing %d of %d rows)\n", len(tb.Rows), tb.Metadata.TotalRows)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(rule + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func metricLine(m models.ExtractedMetric) string {
	line := "  " + m.Title + ": " + utils.FormatCell(m.Value, m.Title)
	if m.Change != nil {
		line += " (" + utils.FormatChange(m.Change) + ")"
	}
	if m.Location != "" && m.Location != services.AllLocations {
		line += " [" + m.Location + "]"
	}
	return line
}

// categories returns metric categories in first-occurrence order.
func categories(metrics []models.ExtractedMetric) []string {
	seen := utils.NewStringSet()
	var out []string
	for _, m := range metrics {
		if seen.Add(m.Category) {
			out = append(out, m.Category)
		}
	}
	return out
}

func formattedRows(t models.ExtractedTable) [][]string {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = formatRow(t.Headers, r)
	}
	return rows
}

// renderBox draws headers and rows as a +---+ grid. Column width is the
// longest header or cell, capped at maxColWidth; longer cells end in "…".
func renderBox(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, r := range rows {
		for i := 0; i < len(r) && i < len(widths); i++ {
			if n := utf8.RuneCountInString(r[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		widths[i] = min(max(widths[i], 1), maxColWidth)
	}

	var b strings.Builder
	sep := boxRule(widths)
	b.WriteString(sep)
	b.WriteString(boxRow(headers, widths))
	b.WriteString(sep)
	for _, r := range rows {
		b.WriteString(boxRow(r, widths))
	}
	if len(rows) > 0 {
		b.WriteString(sep)
	}
	return b.String()
}

func boxRule(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

func boxRow(cells []string, widths []int) string {
	var b strings.Builder
	b.WriteByte('|')
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = fitCell(cells[i], w)
		}
		b.WriteString(" " + cell + strings.Repeat(" ", w-utf8.RuneCountInString(cell)) + " |")
	}
	b.WriteByte('\n')
	return b.String()
}

// fitCell truncates s to width runes, marking the cut with an ellipsis.
func fitCell(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}
