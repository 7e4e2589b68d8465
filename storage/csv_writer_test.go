package storage

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"
	"testing"
	"time"

	"studio-insights/models"
	"studio-insights/services"
)

func sampleData() *models.ExtractedData {
	return &models.ExtractedData{
		Metrics: []models.ExtractedMetric{
			{Title: "Total Revenue", Value: 1234.5, Change: models.Float(12.5), Category: "Sales", Location: services.AllLocations, Tab: "Sales Analytics", Metadata: models.MetricMetadata{Page: "Sales Analytics"}},
			{Title: "Discount Rate", Value: 7.6, Category: "Discounts", Location: services.AllLocations, Tab: "Discounts", Metadata: models.MetricMetadata{Page: "Discounts"}},
		},
		Tables: []models.ExtractedTable{
			{
				Title:    "Top Products",
				Location: services.AllLocations,
				Tab:      "Sales Analytics",
				SubTab:   "Products",
				Headers:  []string{"Product", "Revenue", "Transactions"},
				Rows: [][]string{
					{"Mat", "150", "2"},
					{`Band "Pro"`, "1500", "1"},
				},
				Metadata: models.TableMetadata{RecordCount: 3, Page: "Sales Analytics"},
			},
		},
		Summary: models.Summary{
			CrawlID:      "0f8fad5b-d9cb-469f-a165-70867728950e",
			TotalTables:  1,
			TotalMetrics: 2,
			Pages:        []string{"Sales Analytics", "Discounts"},
			Locations:    []string{services.AllLocations},
			Timestamp:    time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		},
	}
}

func parseCSV(t *testing.T, s string) [][]string {
	t.Helper()
	r := csv.NewReader(strings.NewReader(s))
	r.Comment = '#'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("re-parse csv: %v", err)
	}
	return records
}

func TestCSVRoundTrip(t *testing.T) {
	table := services.ExtractTableFromData("Trainers", []models.Record{
		{"trainer": "Anu, Senior", "sessions": 12},
		{"trainer": `Ben "B"`, "sessions": 9},
	}, services.TableOptions{Location: "Kenkere House", Tab: "Sessions"})

	var buf bytes.Buffer
	data := &models.ExtractedData{Tables: []models.ExtractedTable{table}}
	if err := (&CSVWriter{}).Export(&buf, data); err != nil {
		t.Fatalf("Export: %v", err)
	}

	got := parseCSV(t, buf.String())
	want := append([][]string{table.Headers}, table.Rows...)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip: got %v, want %v", got, want)
	}
}

func TestCSVLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := (&CSVWriter{}).Export(&buf, sampleData()); err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Studio Insights Export\n",
		"# Tables: 1\n",
		"# Pages: Sales Analytics; Discounts\n",
		`"Category","Metric","Value","Change","Location","Tab","Page"` + "\n",
		`"Sales","Total Revenue","₹1,235","+12.5%","All Locations","Sales Analytics","Sales Analytics"` + "\n",
		`"Discounts","Discount Rate","8%","-",`,
		"# Top Products\n# Location: All Locations\n# Tab: Sales Analytics / Products\n",
		`"Band ""Pro""","₹1,500","1"` + "\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "\r\n") {
		t.Error("lines should end in \\n only")
	}
}

func TestExcelCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := (&ExcelCSVWriter{}).Export(&buf, sampleData()); err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "\uFEFFSHEET: Summary\n") {
		t.Errorf("missing BOM and summary marker: %q", out[:min(len(out), 40)])
	}
	for _, want := range []string{
		"SHEET: Metrics\n",
		"SHEET: Top Products - All Locations\n",
		`"Total Tables","1"`,
		`"Mat","₹150","2"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	var csvOut bytes.Buffer
	if err := (&CSVWriter{}).Export(&csvOut, sampleData()); err != nil {
		t.Fatalf("Export csv: %v", err)
	}
	if !strings.Contains(csvOut.String(), `"Mat","₹150","2"`) {
		t.Error("csv and excel exports should format cells identically")
	}
}
