package matrixparser

import (
	"regexp"
	"testing"

	"github.com/altitude-energy/matrix-ingest/internal/tabular"
	"github.com/altitude-energy/matrix-ingest/internal/units"
)

var testVolumePattern = regexp.MustCompile(`(?P<low>\d+)-(?P<high>\d+) Mcf`)

func TestExtractVolumeRangeSpreadsheet(t *testing.T) {
	ctx := spreadsheetContext(t, "Range\n150-2000 Mcf\n")
	vr, err := ExtractVolumeRange(ctx, 0, 1, "A", testVolumePattern, VolumeRangeOptions{
		ExpectedUnit: units.Mcf, TargetUnit: units.CCF,
	})
	if err != nil {
		t.Fatalf("ExtractVolumeRange: %v", err)
	}
	if vr.Low != 1500 {
		t.Errorf("Low = %d, want 1500", vr.Low)
	}
	if vr.High == nil || *vr.High != 20000 {
		t.Errorf("High = %v, want 20000", vr.High)
	}
}

func TestExtractVolumeRangeFudge(t *testing.T) {
	ctx := spreadsheetContext(t, "Range\n1-2001 Mcf\n")
	vr, err := ExtractVolumeRange(ctx, 0, 1, "A", testVolumePattern, VolumeRangeOptions{
		FudgeLow: true, FudgeHigh: true,
		ExpectedUnit: units.Mcf, TargetUnit: units.Mcf,
	})
	if err != nil {
		t.Fatalf("ExtractVolumeRange: %v", err)
	}
	if vr.Low != 0 {
		t.Errorf("Low = %d, want 0 (fudged from 1)", vr.Low)
	}
	if vr.High == nil || *vr.High != 2000 {
		t.Errorf("High = %v, want 2000 (fudged from 2001)", vr.High)
	}
}

func TestExtractVolumeRangeUnboundedHigh(t *testing.T) {
	regex := regexp.MustCompile(`Above (?P<low>[\d,]+) Mcf`)
	ctx := spreadsheetContext(t, "Range\nAbove 100,000 Mcf\n")
	vr, err := ExtractVolumeRange(ctx, 0, 1, "A", regex, VolumeRangeOptions{
		ExpectedUnit: units.Mcf, TargetUnit: units.Mcf,
	})
	if err != nil {
		t.Fatalf("ExtractVolumeRange: %v", err)
	}
	if vr.Low != 100000 {
		t.Errorf("Low = %d, want 100000", vr.Low)
	}
	if vr.High != nil {
		t.Errorf("High = %v, want nil", vr.High)
	}
}

func TestExtractVolumeRangeHorizontalContiguous(t *testing.T) {
	csv := "A,B\n0-1000 Mcf,1000-2000 Mcf\n"
	ctx := spreadsheetContext(t, csv)
	ranges, err := ExtractVolumeRangeHorizontal(ctx, 0, 1, "A", "B", testVolumePattern, false, VolumeRangeOptions{
		ExpectedUnit: units.Mcf, TargetUnit: units.Mcf,
	})
	if err != nil {
		t.Fatalf("ExtractVolumeRangeHorizontal: %v", err)
	}
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(ranges))
	}
}

func TestExtractVolumeRangeHorizontalNonContiguous(t *testing.T) {
	csv := "A,B\n0-1000 Mcf,1500-2000 Mcf\n"
	ctx := spreadsheetContext(t, csv)
	_, err := ExtractVolumeRangeHorizontal(ctx, 0, 1, "A", "B", testVolumePattern, false, VolumeRangeOptions{
		ExpectedUnit: units.Mcf, TargetUnit: units.Mcf,
	})
	if err == nil {
		t.Fatal("expected error for non-contiguous ranges")
	} else if _, ok := err.(*tabular.FormatError); !ok {
		t.Errorf("expected *tabular.FormatError, got %T", err)
	}
}

func TestExtractVolumeRangeNoReader(t *testing.T) {
	ctx := &Context{}
	_, err := ExtractVolumeRange(ctx, 0, 1, "A", testVolumePattern, VolumeRangeOptions{})
	if err == nil {
		t.Fatal("expected error when context has no reader")
	}
}
