package storage

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"studio-insights/models"
	"studio-insights/utils"
)

// maxPDFMetrics caps the metrics table on the first page.
const maxPDFMetrics = 30

// A4 landscape, in inches.
const (
	a4LongEdge  = 11.69
	a4ShortEdge = 8.27
)

const pdfFooter = `<div style="width:100%;font-size:8px;color:#fff;background:#4b2e83;padding:4px 24px;-webkit-print-color-adjust:exact;">` +
	`Studio Insights &middot; Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`

// PDFWriter renders the crawl to HTML and prints it to a landscape A4 PDF
// through headless Chrome.
type PDFWriter struct {
	chromeBin string
	logger    *utils.Logger
	timeout   time.Duration
}

// NewPDFWriter creates a PDFWriter. An empty chromeBin is auto-detected.
func NewPDFWriter(chromeBin string, logger *utils.Logger) *PDFWriter {
	return &PDFWriter{chromeBin: chromeBin, logger: logger, timeout: 90 * time.Second}
}

func (p *PDFWriter) Extension() string { return "pdf" }

func (p *PDFWriter) Export(w io.Writer, data *models.ExtractedData) error {
	var html bytes.Buffer
	if err := RenderHTML(&html, data); err != nil {
		return err
	}

	pdf, err := p.print(html.String())
	if err != nil {
		return err
	}
	_, err = w.Write(pdf)
	return err
}

func (p *PDFWriter) print(html string) ([]byte, error) {
	bin := p.chromeBin
	if bin == "" {
		bin = FindChromeBinary()
	}
	if p.logger != nil {
		p.logger.Info("[export] Printing PDF with browser binary: %s", orDefault(bin, "chromedp default"))
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, p.timeout)
	defer cancelTimeout()

	var pdf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithLandscape(true).
				WithPaperWidth(a4ShortEdge).
				WithPaperHeight(a4LongEdge).
				WithMarginTop(0.4).
				WithMarginBottom(0.5).
				WithMarginLeft(0.3).
				WithMarginRight(0.3).
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate("<div></div>").
				WithFooterTemplate(pdfFooter).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("pdf: chromedp print: %w", err)
	}
	return pdf, nil
}

// FindChromeBinary locates a Chrome/Chromium binary, honouring CHROME_BIN.
// It returns "" when none is found.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

type pdfColumn struct {
	Header string
	Class  string
}

type pdfTable struct {
	Title     string
	Location  string
	Tab       string
	Columns   []pdfColumn
	Rows      [][]pdfCell
	Truncated bool
	TotalRows int
}

type pdfCell struct {
	Text  string
	Class string
}

type pdfView struct {
	GeneratedAt string
	Summary     models.Summary
	TableCount  int
	MetricCount int
	Metrics     []pdfMetric
	MoreMetrics int
	Tables      []pdfTable
}

type pdfMetric struct {
	Category string
	Title    string
	Value    string
	Change   string
	Location string
}

var wideHints = []string{"name", "product", "category", "trainer", "class", "format", "membership", "source", "stage", "associate", "sold by", "method", "title"}

// columnClass picks the PDF column style: narrow for counts and percentages,
// right-aligned bold for money, wide for names and categories.
func columnClass(header string) string {
	switch utils.ShapeFor(header, "") {
	case utils.ShapePercent, utils.ShapeCount:
		return "narrow"
	case utils.ShapeCurrency, utils.ShapeAverage:
		return "money"
	}
	h := strings.ToLower(header)
	for _, hint := range wideHints {
		if strings.Contains(h, hint) {
			return "wide"
		}
	}
	return ""
}

func buildPDFView(data *models.ExtractedData) pdfView {
	v := pdfView{
		GeneratedAt: time.Now().Format("02 Jan 2006 15:04"),
		Summary:     data.Summary,
		TableCount:  len(data.Tables),
		MetricCount: len(data.Metrics),
	}

	for i, m := range data.Metrics {
		if i == maxPDFMetrics {
			v.MoreMetrics = len(data.Metrics) - maxPDFMetrics
			break
		}
		v.Metrics = append(v.Metrics, pdfMetric{
			Category: m.Category,
			Title:    m.Title,
			Value:    utils.FormatCell(m.Value, m.Title),
			Change:   utils.FormatChange(m.Change),
			Location: m.Location,
		})
	}

	for _, t := range data.Tables {
		pt := pdfTable{
			Title:     t.Title,
			Location:  t.Location,
			Tab:       tabPath(t),
			Truncated: t.Metadata.Truncated,
			TotalRows: t.Metadata.TotalRows,
		}
		for _, h := range t.Headers {
			pt.Columns = append(pt.Columns, pdfColumn{Header: h, Class: columnClass(h)})
		}
		for _, r := range formattedRows(t) {
			cells := make([]pdfCell, len(r))
			for i, c := range r {
				cells[i] = pdfCell{Text: c}
				if i < len(pt.Columns) {
					cells[i].Class = pt.Columns[i].Class
				}
			}
			pt.Rows = append(pt.Rows, cells)
		}
		v.Tables = append(v.Tables, pt)
	}
	return v
}

var pdfTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Studio Insights Report</title>
<style>
  @page { size: A4 landscape; }
  body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 10px; color: #222; margin: 0; }
  .band { background: #4b2e83; color: #fff; padding: 14px 24px; -webkit-print-color-adjust: exact; }
  .band h1 { margin: 0; font-size: 20px; }
  .band .sub { font-size: 10px; opacity: .85; }
  section { padding: 12px 24px; }
  section.table-page { page-break-before: always; }
  h2 { font-size: 14px; margin: 0 0 4px; color: #4b2e83; }
  .meta { color: #666; margin-bottom: 8px; }
  table { width: 100%; border-collapse: collapse; }
  th { background: #ece6f6; text-align: left; padding: 4px 6px; border-bottom: 2px solid #4b2e83; -webkit-print-color-adjust: exact; }
  td { padding: 3px 6px; border-bottom: 1px solid #ddd; }
  tr { page-break-inside: avoid; }
  thead { display: table-header-group; }
  .narrow { width: 8%; text-align: right; }
  .money { width: 12%; text-align: right; font-weight: bold; }
  .wide { width: 24%; text-align: left; }
  .notice { color: #666; font-style: italic; margin-top: 6px; }
</style>
</head>
<body>
<div class="band">
  <h1>Studio Insights Report</h1>
  <div class="sub">Generated {{.GeneratedAt}}{{with .Summary.CrawlID}} &middot; Crawl {{.}}{{end}}</div>
</div>
<section class="stats">
  <h2>Statistics</h2>
  <table class="stats-table">
    <tbody>
      <tr><th>Total Tables</th><td>{{.TableCount}}</td></tr>
      <tr><th>Total Metrics</th><td>{{.MetricCount}}</td></tr>
      <tr><th>Pages</th><td>{{range $i, $p := .Summary.Pages}}{{if $i}}, {{end}}{{$p}}{{end}}</td></tr>
      <tr><th>Locations</th><td>{{range $i, $l := .Summary.Locations}}{{if $i}} | {{end}}{{$l}}{{end}}</td></tr>
    </tbody>
  </table>
</section>
{{if .Metrics}}
<section class="metrics">
  <h2>Key Metrics</h2>
  <table class="metrics-table">
    <thead><tr><th class="wide">Category</th><th class="wide">Metric</th><th class="money">Value</th><th class="narrow">Change</th><th class="wide">Location</th></tr></thead>
    <tbody>
    {{range .Metrics}}<tr><td class="wide">{{.Category}}</td><td class="wide">{{.Title}}</td><td class="money">{{.Value}}</td><td class="narrow">{{.Change}}</td><td class="wide">{{.Location}}</td></tr>
    {{end}}</tbody>
  </table>
  {{if .MoreMetrics}}<p class="notice more-metrics">+{{.MoreMetrics}} more metrics</p>{{end}}
</section>
{{end}}
{{range .Tables}}
<section class="table-page">
  <h2>{{.Title}}</h2>
  <div class="meta">{{.Location}}{{with .Tab}} &middot; {{.}}{{end}}</div>
  <table class="data-table">
    <thead><tr>{{range .Columns}}<th class="{{.Class}}">{{.Header}}</th>{{end}}</tr></thead>
    <tbody>
    {{range .Rows}}<tr>{{range .}}<td class="{{.Class}}">{{.Text}}</td>{{end}}</tr>
    {{end}}</tbody>
  </table>
  {{if .Truncated}}<p class="notice">Showing {{len .Rows}} of {{.TotalRows}} rows</p>{{end}}
</section>
{{end}}
</body>
</html>
`))

// RenderHTML writes the printable HTML document the PDF is produced from.
func RenderHTML(w io.Writer, data *models.ExtractedData) error {
	if err := pdfTemplate.Execute(w, buildPDFView(data)); err != nil {
		return fmt.Errorf("pdf: render html: %w", err)
	}
	return nil
}
