package units

import (
	"testing"
	"time"
)

func TestExcelNumberRoundTrip(t *testing.T) {
	want := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	number := ExcelDateTimeToNumber(want)
	got := ExcelNumberToDateTime(number)
	if !got.Equal(want) {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-03-15", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"2024_03_15", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"03/15/2024", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"March 15, 2024", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFlexibleDate(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseFlexibleDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFlexibleDateInvalid(t *testing.T) {
	if _, err := ParseFlexibleDate("not a date"); err == nil {
		t.Fatal("expected error for unparsable date")
	}
}

func TestMonthArithmetic(t *testing.T) {
	m := Month{Year: 2024, Month: time.December}
	next := m.Add(1)
	if next.Year != 2025 || next.Month != time.January {
		t.Errorf("Add(1) = %+v, want 2025-01", next)
	}
	prev := m.Add(-12)
	if prev.Year != 2023 || prev.Month != time.December {
		t.Errorf("Add(-12) = %+v, want 2023-12", prev)
	}
	if !m.Last().Before(next.First()) {
		t.Errorf("Last() %v should be before next month's First() %v", m.Last(), next.First())
	}
}
