package services

import (
	"encoding/json"
	"testing"

	"studio-insights/models"
)

func TestNum(t *testing.T) {
	tests := []struct {
		rec  models.Record
		keys []string
		want float64
	}{
		{models.Record{"paymentValue": 120.5}, []string{"paymentValue"}, 120.5},
		{models.Record{"paymentValue": "₹3,500"}, []string{"paymentValue"}, 3500},
		{models.Record{"paymentValue": "₹ 1,200 /-"}, []string{"paymentValue"}, 1200},
		{models.Record{"paymentValue": json.Number("42")}, []string{"paymentValue"}, 42},
		{models.Record{"paymentValue": nil}, []string{"paymentValue"}, 0},
		{models.Record{"paymentValue": "free"}, []string{"paymentValue"}, 0},
		{models.Record{}, []string{"paymentValue"}, 0},
		{models.Record{"grossRevenue": nil, "paymentValue": 7}, []string{"grossRevenue", "paymentValue"}, 7},
		{models.Record{"capacity": 12}, []string{"capacity"}, 12},
		{models.Record{"active": true}, []string{"active"}, 0},
		{models.Record{"paymentValue": "Rs. 500"}, []string{"paymentValue"}, 500},
		{models.Record{"paymentDate": "2024-01-15"}, []string{"paymentDate"}, 0},
		{models.Record{"className": "Class 7"}, []string{"className"}, 0},
		{models.Record{"capacity": "12 seats"}, []string{"capacity"}, 0},
	}

	for _, tt := range tests {
		if got := Num(tt.rec, tt.keys...); got != tt.want {
			t.Errorf("Num(%v, %v) = %v; want %v", tt.rec, tt.keys, got, tt.want)
		}
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		rec  models.Record
		keys []string
		want string
	}{
		{models.Record{"cleanedProduct": "  Studio   Annual  "}, []string{"cleanedProduct"}, "Studio Annual"},
		{models.Record{"cleanedProduct": ""}, []string{"cleanedProduct"}, Unknown},
		{models.Record{"cleanedProduct": nil, "product": "Mat"}, []string{"cleanedProduct", "product"}, "Mat"},
		{models.Record{}, []string{"trainer"}, Unknown},
		{models.Record{"classNo": 3}, []string{"classNo"}, "3"},
	}

	for _, tt := range tests {
		if got := Text(tt.rec, tt.keys...); got != tt.want {
			t.Errorf("Text(%v, %v) = %q; want %q", tt.rec, tt.keys, got, tt.want)
		}
	}
}

func TestFlag(t *testing.T) {
	tests := []struct {
		rec  models.Record
		want bool
	}{
		{models.Record{"converted": "Yes"}, true},
		{models.Record{"converted": "No"}, false},
		{models.Record{"converted": true}, true},
		{models.Record{"converted": 1}, true},
		{models.Record{"converted": "Converted"}, true},
		{models.Record{"converted": "Not Converted"}, false},
		{models.Record{}, false},
	}

	for _, tt := range tests {
		if got := Flag(tt.rec, "converted"); got != tt.want {
			t.Errorf("Flag(%v) = %v; want %v", tt.rec, got, tt.want)
		}
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		raw   any
		month string
		ok    bool
	}{
		{"2025-03-14", "2025-03", true},
		{"2025-03-14T09:30:00Z", "2025-03", true},
		{"2025-03-14 09:30:00", "2025-03", true},
		{"14/03/2025, 09:30:00", "2025-03", true},
		{"14/03/2025", "2025-03", true},
		{"last tuesday", "", false},
		{nil, "", false},
	}

	for _, tt := range tests {
		d, ok := Date(models.Record{"paymentDate": tt.raw}, "paymentDate")
		if ok != tt.ok {
			t.Errorf("Date(%v) ok = %v; want %v", tt.raw, ok, tt.ok)
			continue
		}
		if ok && MonthKey(d) != tt.month {
			t.Errorf("Date(%v) month = %q; want %q", tt.raw, MonthKey(d), tt.month)
		}
	}
}

func TestLocationOf(t *testing.T) {
	tests := []struct {
		rec  models.Record
		want string
	}{
		{models.Record{"calculatedLocation": "Kenkere House", "location": "Other"}, "Kenkere House"},
		{models.Record{"location": "Supreme HQ, Bandra"}, "Supreme HQ, Bandra"},
		{models.Record{"center": "Kwality House, Kemps Corner"}, "Kwality House, Kemps Corner"},
		{models.Record{}, ""},
	}

	for _, tt := range tests {
		if got := LocationOf(tt.rec); got != tt.want {
			t.Errorf("LocationOf(%v) = %q; want %q", tt.rec, got, tt.want)
		}
	}
}

func TestRatio(t *testing.T) {
	if got := ratio(5, 0); got != 0 {
		t.Errorf("ratio with zero denominator: got %v, want 0", got)
	}
	if got := ratio(1, 4); got != 25 {
		t.Errorf("ratio(1, 4): got %v, want 25", got)
	}
}
