package formatresolver

import (
	"testing"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
)

func TestResolveWildcard(t *testing.T) {
	formats := []domain.MatrixFormat{
		{Name: "only", MatchBody: false},
	}
	got, err := Resolve(formats, "ratesheet.xlsx", false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Name != "only" {
		t.Errorf("Name = %q, want %q", got.Name, "only")
	}
}

func TestResolvePatternCaseInsensitiveMultiline(t *testing.T) {
	formats := []domain.MatrixFormat{
		{Name: "body", MatchBody: true, AttachmentPattern: `matrix\nrates`},
	}
	got, err := Resolve(formats, "MATRIX\nRATES update", true)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Name != "body" {
		t.Errorf("Name = %q, want %q", got.Name, "body")
	}
}

func TestResolveMatchBodyFlagExcludesMismatch(t *testing.T) {
	formats := []domain.MatrixFormat{
		{Name: "attachment-only", MatchBody: false},
	}
	_, err := Resolve(formats, "subject line", true)
	if _, ok := err.(*UnknownFormatError); !ok {
		t.Fatalf("expected *UnknownFormatError, got %v (%T)", err, err)
	}
}

func TestResolveNoMatch(t *testing.T) {
	formats := []domain.MatrixFormat{
		{Name: "specific", AttachmentPattern: `^rates-\d+\.xlsx$`},
	}
	_, err := Resolve(formats, "unrelated.pdf", false)
	uerr, ok := err.(*UnknownFormatError)
	if !ok {
		t.Fatalf("expected *UnknownFormatError, got %T", err)
	}
	if uerr.Matches != 0 {
		t.Errorf("Matches = %d, want 0", uerr.Matches)
	}
}

func TestResolveMultipleMatches(t *testing.T) {
	formats := []domain.MatrixFormat{
		{Name: "a", AttachmentPattern: `rates`},
		{Name: "b", AttachmentPattern: `rates\.xlsx$`},
	}
	_, err := Resolve(formats, "rates.xlsx", false)
	uerr, ok := err.(*UnknownFormatError)
	if !ok {
		t.Fatalf("expected *UnknownFormatError, got %T", err)
	}
	if uerr.Matches != 2 {
		t.Errorf("Matches = %d, want 2", uerr.Matches)
	}
}

func TestResolveAnchorsAtStartOfFileName(t *testing.T) {
	formats := []domain.MatrixFormat{
		{Name: "suffix-only", AttachmentPattern: `rates\.xlsx$`},
	}
	_, err := Resolve(formats, "daily-rates.xlsx", false)
	uerr, ok := err.(*UnknownFormatError)
	if !ok {
		t.Fatalf("expected *UnknownFormatError, got %v (%T)", err, err)
	}
	if uerr.Matches != 0 {
		t.Errorf("Matches = %d, want 0 (pattern must anchor at start, not match mid-string)", uerr.Matches)
	}
}
