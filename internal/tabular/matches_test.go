package tabular

import (
	"regexp"
	"testing"
)

func TestValidateAndConvertText(t *testing.T) {
	regex := regexp.MustCompile(`^(\d[\d,]*)-(\d[\d,]*)$`)

	tests := []struct {
		name    string
		text    string
		want    []any
		wantErr bool
	}{
		{"simple range", "1,000-2,000", []any{1000, 2000}, false},
		{"no match", "not a range", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateAndConvertText(regex, tt.text, ParseIntString, ParseIntString)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("group %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValidateAndConvertTextWrongGroupCount(t *testing.T) {
	regex := regexp.MustCompile(`^(\d+)$`)
	if _, err := ValidateAndConvertText(regex, "5", ParseIntString, ParseIntString); err == nil {
		t.Fatal("expected error for mismatched converter/group count")
	}
}
