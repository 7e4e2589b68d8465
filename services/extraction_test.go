package services

import (
	"encoding/json"
	"reflect"
	"testing"

	"studio-insights/models"
)

func TestGroupBy(t *testing.T) {
	records := []models.Record{
		{"trainer": "Anu", "n": 1},
		{"trainer": "Ben", "n": 2},
		{"trainer": "", "n": 3},
		{"trainer": "Anu", "n": 4},
		{"n": 5},
		{"trainer": 0, "n": 6},
		{"trainer": json.Number("0"), "n": 7},
		{"trainer": int64(0), "n": 8},
	}

	g := GroupBy(records, "trainer")

	if got, want := g.Keys(), []string{"Anu", "Ben", Unknown}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys: got %v, want %v", got, want)
	}
	if n := len(g.Get("Anu")); n != 2 {
		t.Errorf("Anu: got %d records, want 2", n)
	}
	if n := len(g.Get(Unknown)); n != 5 {
		t.Errorf("Unknown: got %d records, want 5", n)
	}

	flat := g.Flatten()
	if len(flat) != len(records) {
		t.Errorf("Flatten: got %d records, want %d", len(flat), len(records))
	}
	seen := map[any]int{}
	for _, r := range flat {
		seen[r["n"]]++
	}
	for _, r := range records {
		if seen[r["n"]] != 1 {
			t.Errorf("Flatten: record n=%v appears %d times, want once", r["n"], seen[r["n"]])
		}
	}
}

func TestFilterByLocation(t *testing.T) {
	records := []models.Record{
		{"calculatedLocation": "Kwality House, Kemps Corner"},
		{"calculatedLocation": "Kenkere House, Bengaluru"},
		{"calculatedLocation": "Kenkere House"},
		{"location": "Supreme HQ, Bandra"},
		{},
	}

	tests := []struct {
		location string
		want     int
	}{
		{"", 5},
		{AllLocations, 5},
		{"Kwality House, Kemps Corner", 1},
		{"Kenkere House", 2},
		{"kenkere house", 2},
		{"Bengaluru", 1},
		{"BENGALURU", 1},
		{"Supreme HQ, Bandra", 1},
		{"Supreme HQ", 0},
	}

	for _, tt := range tests {
		if got := FilterByLocation(records, tt.location); len(got) != tt.want {
			t.Errorf("FilterByLocation(%q): got %d records, want %d", tt.location, len(got), tt.want)
		}
	}
}

func TestFilterByLocationIdentity(t *testing.T) {
	records := []models.Record{{"a": 1}, {"b": 2}}
	got := FilterByLocation(records, AllLocations)
	if &got[0] != &records[0] || len(got) != len(records) {
		t.Error("All Locations should return the input unchanged")
	}
}

func TestExtractTableFromData(t *testing.T) {
	records := []models.Record{
		{"name": "Mat", "price": 10.5, "qty": 2},
		{"name": "Band", "price": 4.0},
		{"name": "Block", "price": 7.0, "qty": 1},
	}

	table := ExtractTableFromData("Products", records, TableOptions{Location: "Kenkere House", Page: "Sales Analytics"})

	if want := []string{"name", "price", "qty"}; !reflect.DeepEqual(table.Headers, want) {
		t.Errorf("Headers: got %v, want %v", table.Headers, want)
	}
	if want := []string{"Band", "4", ""}; !reflect.DeepEqual(table.Rows[1], want) {
		t.Errorf("Rows[1]: got %v, want %v", table.Rows[1], want)
	}
	if table.Metadata.RecordCount != 3 {
		t.Errorf("RecordCount: got %d, want 3", table.Metadata.RecordCount)
	}
	if !table.Valid() {
		t.Error("every row should match the header width")
	}
}

func TestExtractTableFromDataEmpty(t *testing.T) {
	table := ExtractTableFromData("Empty", nil, TableOptions{Headers: []string{"A", "B"}})
	if !reflect.DeepEqual(table.Headers, []string{"A", "B"}) {
		t.Errorf("Headers: got %v, want [A B]", table.Headers)
	}
	if table.Rows == nil || len(table.Rows) != 0 {
		t.Errorf("Rows: got %v, want empty", table.Rows)
	}

	bare := ExtractTableFromData("Empty", nil, TableOptions{})
	if bare.Headers == nil || len(bare.Headers) != 0 {
		t.Errorf("Headers without options: got %v, want empty", bare.Headers)
	}
}

func TestExtractTableFromDataTruncates(t *testing.T) {
	records := make([]models.Record, 25)
	for i := range records {
		records[i] = models.Record{"i": i}
	}

	table := ExtractTableFromData("Log", records, TableOptions{MaxRows: 10})
	if len(table.Rows) != 10 {
		t.Errorf("rows: got %d, want 10", len(table.Rows))
	}
	if !table.Metadata.Truncated || table.Metadata.TotalRows != 25 {
		t.Errorf("metadata: got %+v, want truncated with 25 total rows", table.Metadata)
	}
}

func TestExtractMetrics(t *testing.T) {
	change := 12.5
	metrics := ExtractMetrics(map[string]any{
		"totalRevenue":      MetricValue{Value: 500.0, Change: &change},
		"averageTicketSize": 42,
		"netRevenue":        map[string]any{"value": 450.0, "change": -3.0},
	}, MetricOptions{Category: "Sales", Location: AllLocations, Page: "Sales Analytics"})

	if len(metrics) != 3 {
		t.Fatalf("len: got %d, want 3", len(metrics))
	}

	want := []struct {
		title  string
		value  any
		change *float64
	}{
		{"Average Ticket Size", 42, nil},
		{"Net Revenue", 450.0, models.Float(-3)},
		{"Total Revenue", 500.0, &change},
	}
	for i, w := range want {
		m := metrics[i]
		if m.Title != w.title {
			t.Errorf("metrics[%d].Title: got %q, want %q", i, m.Title, w.title)
		}
		if m.Value != w.value {
			t.Errorf("metrics[%d].Value: got %v, want %v", i, m.Value, w.value)
		}
		if (m.Change == nil) != (w.change == nil) || (m.Change != nil && *m.Change != *w.change) {
			t.Errorf("metrics[%d].Change: got %v, want %v", i, m.Change, w.change)
		}
		if m.Category != "Sales" || m.Metadata.Page != "Sales Analytics" {
			t.Errorf("metrics[%d] provenance: got %+v", i, m)
		}
	}
}

func TestTitleize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"totalRevenue", "Total Revenue"},
		{"averageTransactionValue", "Average Transaction Value"},
		{"revenue", "Revenue"},
		{"Fill Rate", "Fill Rate"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Titleize(tt.in); got != tt.want {
			t.Errorf("Titleize(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
