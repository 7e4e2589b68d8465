package storage

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"studio-insights/models"
)

func TestXLSXWorkbook(t *testing.T) {
	data := sampleData()
	dup := data.Tables[0]
	dup.Rows = [][]string{{"Block", "90", "3"}}
	data.Tables = append(data.Tables, dup)

	var buf bytes.Buffer
	if err := (&XLSXWriter{}).Export(&buf, data); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	want := []string{"Summary", "Metrics", "Top Products - All Locations", "Top Products - All Location (2)"}
	if got := f.GetSheetList(); !reflect.DeepEqual(got, want) {
		t.Errorf("sheets: got %q, want %q", got, want)
	}

	rows, err := f.GetRows("Metrics")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("metric rows: got %d, want 3", len(rows))
	}
	if rows[2][1] != "Discount Rate" || rows[2][2] != "8%" {
		t.Errorf("metric row: got %v", rows[2])
	}

	products, err := f.GetRows(want[2])
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if !reflect.DeepEqual(products[1], []string{"Mat", "₹150", "2"}) {
		t.Errorf("first product row: got %v", products[1])
	}
}

func TestSheetNames(t *testing.T) {
	names := newSheetNames()
	tests := []struct {
		in, want string
	}{
		{"Summary", "Summary"},
		{"summary", "summary (2)"},
		{"Sales/Returns [Q1]: draft?", "Sales Returns (Q1) draft"},
		{"", "Sheet"},
	}
	for _, tt := range tests {
		if got := names.take(tt.in); got != tt.want {
			t.Errorf("take(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}

	long := names.take(strings.Repeat("Late Cancellations by Trainer ", 3))
	if n := utf8.RuneCountInString(long); n > maxSheetName {
		t.Errorf("long name: got %d runes, want <= %d", n, maxSheetName)
	}
}

func TestXLSXEmptyData(t *testing.T) {
	var buf bytes.Buffer
	if err := (&XLSXWriter{}).Export(&buf, &models.ExtractedData{}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("workbook should not be empty")
	}
}
