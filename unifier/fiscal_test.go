package unifier

import (
	"reflect"
	"testing"
)

// 会計年度は8月1日開始
func TestFiscalYearStart(t *testing.T) {
	tests := []struct {
		month string
		want  string
	}{
		{"2025-03", "2024-08"},
		{"2025-07", "2024-08"},
		{"2025-08", "2025-08"},
		{"2025-12", "2025-08"},
		{"2026-01", "2025-08"},
	}
	for _, tt := range tests {
		got, err := FiscalYearStart(tt.month)
		if err != nil {
			t.Fatalf("FiscalYearStart(%q) error: %v", tt.month, err)
		}
		if got != tt.want {
			t.Errorf("FiscalYearStart(%q) = %q, want %q", tt.month, got, tt.want)
		}
	}

	if _, err := FiscalYearStart("2025/03"); err == nil {
		t.Error("expected error for malformed month")
	}
}

func TestFiscalMonthsThrough(t *testing.T) {
	got, err := FiscalMonthsThrough("2024-10")
	if err != nil {
		t.Fatalf("FiscalMonthsThrough error: %v", err)
	}
	want := []string{"2024-08", "2024-09", "2024-10"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FiscalMonthsThrough(2024-10) = %v, want %v", got, want)
	}
}

func TestFiscalMonthsOfYear(t *testing.T) {
	months := FiscalMonthsOfYear(2024)
	if len(months) != 12 {
		t.Fatalf("got %d months, want 12", len(months))
	}
	if months[0] != "2024-08" || months[11] != "2025-07" {
		t.Errorf("FY2024 = [%s .. %s], want [2024-08 .. 2025-07]", months[0], months[11])
	}
}

func TestPrevYearMonth(t *testing.T) {
	got, err := PrevYearMonth("2025-01")
	if err != nil {
		t.Fatalf("PrevYearMonth error: %v", err)
	}
	if got != "2024-01" {
		t.Errorf("PrevYearMonth(2025-01) = %q, want 2024-01", got)
	}
}
