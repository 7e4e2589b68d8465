package storage

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"studio-insights/models"
	"studio-insights/utils"
)

const maxSheetName = 31

// XLSXWriter exports a real workbook: a Summary sheet, a Metrics sheet and
// one sheet per table. Cells hold the same formatted text as the CSV export.
type XLSXWriter struct{}

func (x *XLSXWriter) Extension() string { return "xlsx" }

func (x *XLSXWriter) Export(w io.Writer, data *models.ExtractedData) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4B2E83"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("xlsx: header style: %w", err)
	}

	names := newSheetNames()

	summary := names.take("Summary")
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return fmt.Errorf("xlsx: rename default sheet: %w", err)
	}
	if err := writeSheet(f, summary, bold, []string{"Field", "Value"}, [][]string{
		{"Export Date", time.Now().Format(time.RFC3339)},
		{"Crawl ID", data.Summary.CrawlID},
		{"Total Tables", strconv.Itoa(len(data.Tables))},
		{"Total Metrics", strconv.Itoa(len(data.Metrics))},
		{"Pages", strings.Join(data.Summary.Pages, "; ")},
		{"Locations", strings.Join(data.Summary.Locations, "; ")},
	}); err != nil {
		return err
	}

	metricRows := make([][]string, 0, len(data.Metrics))
	for _, m := range data.Metrics {
		metricRows = append(metricRows, metricRow(m))
	}
	metrics := names.take("Metrics")
	if _, err := f.NewSheet(metrics); err != nil {
		return fmt.Errorf("xlsx: new sheet %q: %w", metrics, err)
	}
	if err := writeSheet(f, metrics, bold, metricHeaders, metricRows); err != nil {
		return err
	}

	for _, t := range data.Tables {
		name := names.take(sheetLabel(t))
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsx: new sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, bold, t.Headers, formattedRows(t)); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, headers []string, rows [][]string) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("xlsx: stream %q: %w", sheet, err)
	}

	for i, h := range headers {
		width := utf8.RuneCountInString(h)
		for _, r := range rows {
			if i < len(r) {
				width = max(width, utf8.RuneCountInString(r[i]))
			}
		}
		if err := sw.SetColWidth(i+1, i+1, float64(min(width, 60)+2)); err != nil {
			return fmt.Errorf("xlsx: column width: %w", err)
		}
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx: %s header: %w", sheet, err)
	}

	for i, r := range rows {
		cells := make([]any, len(r))
		for j, v := range r {
			cells[j] = v
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(addr, cells); err != nil {
			return fmt.Errorf("xlsx: %s row %d: %w", sheet, i+1, err)
		}
	}
	return sw.Flush()
}

// sheetNames hands out unique, Excel-legal worksheet names.
type sheetNames struct {
	used *utils.StringSet
}

func newSheetNames() *sheetNames {
	return &sheetNames{used: utils.NewStringSet()}
}

var sheetNameReplacer = strings.NewReplacer(
	":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")",
)

func (s *sheetNames) take(label string) string {
	base := strings.Join(strings.Fields(sheetNameReplacer.Replace(label)), " ")
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Sheet"
	}
	base = clipRunes(base, maxSheetName)

	name := base
	for n := 2; !s.used.Add(strings.ToLower(name)); n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = clipRunes(base, maxSheetName-len(suffix)) + suffix
	}
	return name
}

func clipRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
