package tabular

import (
	"strings"
	"testing"
)

func TestSpreadsheetReaderCSV(t *testing.T) {
	csv := "Utility,Rate,Term\nConEd,0.075,12\nPSEG,0.081,24\n"
	r := NewSpreadsheetReader(FormatCSV)
	if err := r.Load(strings.NewReader(csv)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !r.IsLoaded() {
		t.Fatal("expected IsLoaded true after Load")
	}

	height, err := r.Height(0)
	if err != nil {
		t.Fatalf("Height: %v", err)
	}
	if height != 3 {
		t.Errorf("Height = %d, want 3", height)
	}

	header, err := r.Get(0, HeaderRow, "A", TypeString)
	if err != nil {
		t.Fatalf("Get header: %v", err)
	}
	if header != "Utility" {
		t.Errorf("header = %q, want %q", header, "Utility")
	}

	rate, err := r.Get(0, 1, "B", TypeFloat)
	if err != nil {
		t.Fatalf("Get rate: %v", err)
	}
	if rate != 0.075 {
		t.Errorf("rate = %v, want 0.075", rate)
	}

	term, err := r.Get(0, 2, "C", TypeInt)
	if err != nil {
		t.Fatalf("Get term: %v", err)
	}
	if term != 24 {
		t.Errorf("term = %v, want 24", term)
	}
}

func TestSpreadsheetReaderWrongType(t *testing.T) {
	csv := "Name\nnot-a-number\n"
	r := NewSpreadsheetReader(FormatCSV)
	if err := r.Load(strings.NewReader(csv)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := r.Get(0, 1, "A", TypeFloat); err == nil {
		t.Fatal("expected FormatError for non-numeric cell")
	} else if _, ok := err.(*FormatError); !ok {
		t.Errorf("expected *FormatError, got %T", err)
	}
}

func TestColLetterToIndex(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"A", 0},
		{"Z", 25},
		{"AA", 26},
		{"AB", 27},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ColLetterToIndex(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ColLetterToIndex(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestColumnRange(t *testing.T) {
	got, err := ColumnRange("A", "C", 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("ColumnRange = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ColumnRange[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
