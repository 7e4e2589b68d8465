package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"studio-insights/models"
	"studio-insights/services"
	"studio-insights/utils"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sales.json", `[
		{"cleanedProduct": "Mat", "paymentValue": 150, "calculatedLocation": "Kenkere House"},
		{"cleanedProduct": "Band", "paymentValue": "₹30", "calculatedLocation": "Supreme HQ, Bandra"}
	]`)
	writeFile(t, dir, "leads.json", `{"data": [{"source": "Instagram"}]}`)
	writeFile(t, dir, "sessions.csv", "\uFEFFcleanedClass,checkedInCount,capacity\nBarre 57,8,10\n\"PowerCycle, Express\",0,14\n")

	src := NewFileSource(dir, utils.NewDiscardLogger())
	sources, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if n := len(sources.Get(models.DatasetSales)); n != 2 {
		t.Errorf("sales: got %d, want 2", n)
	}
	if n := len(sources.Get(models.DatasetLeads)); n != 1 {
		t.Errorf("leads: got %d, want 1", n)
	}
	sessions := sources.Get(models.DatasetSessions)
	if len(sessions) != 2 || sessions[1]["cleanedClass"] != "PowerCycle, Express" {
		t.Errorf("sessions: got %v", sessions)
	}
	if _, ok := sources[models.DatasetPayroll]; ok {
		t.Error("payroll has no file and should be unset")
	}

	m := services.CalculateSalesMetrics(sources.Get(models.DatasetSales))
	if m.TotalRevenue != 180 {
		t.Errorf("TotalRevenue from json numbers: got %.2f, want 180", m.TotalRevenue)
	}
}

func TestFileSourceErrors(t *testing.T) {
	if _, err := NewFileSource(filepath.Join(t.TempDir(), "missing"), utils.NewDiscardLogger()).Load(context.Background()); err == nil {
		t.Error("missing data dir should fail")
	}

	dir := t.TempDir()
	writeFile(t, dir, "sales.json", `{not json`)
	_, err := NewFileSource(dir, utils.NewDiscardLogger()).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "sales.json") {
		t.Errorf("malformed json: got %v, want an error naming the file", err)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.db")
	store, err := NewSQLiteStore(path, utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	sales := make([]models.Record, 0, 120)
	for i := 0; i < 120; i++ {
		sales = append(sales, models.Record{
			"cleanedProduct": "Mat",
			"paymentValue":   10.5,
			"memberId":       i,
		})
	}
	sales = append(sales, models.Record{"cleanedProduct": "Band", "discountAmount": 5})

	if err := store.WriteDataset(ctx, models.DatasetSales, sales); err != nil {
		t.Fatalf("WriteDataset: %v", err)
	}
	if err := store.WriteDataset(ctx, models.DatasetLateCancellations, []models.Record{{"cleanedClass": "Barre 57"}}); err != nil {
		t.Fatalf("WriteDataset: %v", err)
	}

	sources, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := sources.Get(models.DatasetSales)
	if len(got) != 121 {
		t.Fatalf("sales: got %d, want 121", len(got))
	}
	if _, ok := got[120]["paymentValue"]; ok {
		t.Error("NULL columns should be left out of the record")
	}
	m := services.CalculateSalesMetrics(got)
	if m.TotalRevenue != 1260 || m.TotalDiscount != 5 {
		t.Errorf("metrics from sqlite: got %+v", m)
	}
	if n := len(sources.Get(models.DatasetLateCancellations)); n != 1 {
		t.Errorf("late cancellations: got %d, want 1", n)
	}
	if _, ok := sources[models.DatasetLeads]; ok {
		t.Error("leads has no table and should be unset")
	}
}

func TestTableNameAndColumns(t *testing.T) {
	tests := []struct {
		ds   models.Dataset
		want string
	}{
		{models.DatasetSales, "sales"},
		{models.DatasetLateCancellations, "late_cancellations"},
		{models.DatasetNewClients, "new_clients"},
	}
	for _, tt := range tests {
		if got := TableName(tt.ds); got != tt.want {
			t.Errorf("TableName(%s): got %q, want %q", tt.ds, got, tt.want)
		}
	}

	cols := []struct{ in, want string }{
		{"payment_value", "paymentValue"},
		{"CALCULATED_LOCATION", "calculatedLocation"},
		{"memberId", "memberId"},
		{"_id", "id"},
	}
	for _, c := range cols {
		if got := camelCase(c.in); got != c.want {
			t.Errorf("camelCase(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	exp, err := NewExporter("JSON", "", utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}

	path, err := WriteFile(dir, exp, sampleData())
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if want := "studio-insights-2025-03-14-0f8fad5b.json"; filepath.Base(path) != want {
		t.Errorf("file name: got %q, want %q", filepath.Base(path), want)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(b), `"crawlId": "0f8fad5b-d9cb-469f-a165-70867728950e"`) {
		t.Error("json export should carry the summary")
	}

	if _, err := NewExporter("docx", "", utils.NewDiscardLogger()); err == nil {
		t.Error("unknown format should be rejected")
	}
}
