package utils

import "testing"

func TestFormatCell(t *testing.T) {
	tests := []struct {
		value  any
		header string
		want   string
	}{
		{nil, "Revenue", "-"},
		{"", "Product", "-"},
		{"   ", "Product", "-"},
		{7.6, "Discount Rate", "8%"},
		{45.5, "Fill Rate", "46%"},
		{"12.4%", "Status", "12%"},
		{150, "Revenue", "₹150"},
		{1234.5, "Total Revenue", "₹1,235"},
		{"₹1,200", "Notes", "₹1,200"},
		{99.4, "MRP", "₹99"},
		{1234567, "Transactions", "1,234,567"},
		{12, "Unique Customers", "12"},
		{2.5, "Avg Value", "₹3"},
		{1234.4, "Avg Spend", "₹1,234"},
		{12.5, "Class Size", "13"},
		{"Mat", "Product", "Mat"},
		{"2025-01", "Month", "2025-01"},
		{"Kenkere House", "Total Revenue", "Kenkere House"},
		{-1500, "Net Revenue", "-₹1,500"},
		{true, "Active", "true"},
	}

	for _, tt := range tests {
		got := FormatCell(tt.value, tt.header)
		if got != tt.want {
			t.Errorf("FormatCell(%v, %q) = %q; want %q", tt.value, tt.header, got, tt.want)
		}
	}
}

func TestShapeFor(t *testing.T) {
	tests := []struct {
		header string
		raw    string
		want   CellShape
	}{
		{"Conversion Rate", "12", ShapePercent},
		{"Discount Amount", "12", ShapeCurrency},
		{"Member Count", "12", ShapeCount},
		{"Average Attendees", "12", ShapeAverage},
		{"Trainer", "12", ShapePlain},
		{"Trainer", "₹12", ShapeCurrency},
	}

	for _, tt := range tests {
		if got := ShapeFor(tt.header, tt.raw); got != tt.want {
			t.Errorf("ShapeFor(%q, %q) = %v; want %v", tt.header, tt.raw, got, tt.want)
		}
	}
}

func TestFormatChange(t *testing.T) {
	pos, neg, zero := 12.345, -3.0, 0.0

	tests := []struct {
		change *float64
		want   string
	}{
		{nil, "-"},
		{&pos, "+12.3%"},
		{&neg, "-3.0%"},
		{&zero, "0.0%"},
	}

	for _, tt := range tests {
		if got := FormatChange(tt.change); got != tt.want {
			t.Errorf("FormatChange = %q; want %q", got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"150", 150, true},
		{"₹1,250.50", 1250.50, true},
		{"45%", 45, true},
		{"", 0, false},
		{"Mat", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseNumber(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{nil, ""},
		{150.0, "150"},
		{7.6, "7.6"},
		{int64(42), "42"},
		{"x", "x"},
		{false, "false"},
	}

	for _, tt := range tests {
		if got := Stringify(tt.value); got != tt.want {
			t.Errorf("Stringify(%v) = %q; want %q", tt.value, got, tt.want)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(167.499); got != 167.5 {
		t.Errorf("Round2: got %v, want 167.5", got)
	}
}
