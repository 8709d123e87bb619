package matrixparser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
	"github.com/altitude-energy/matrix-ingest/internal/tabular"
)

// amerigreenFixture builds a CSV sheet where line N (0-based, matching the
// reader's row-addressing convention) holds the given columns, with every
// other line blank. Column letters A, B, C, ... map to indices 0, 1, 2, ....
func amerigreenFixture(rows map[int]map[int]string) string {
	maxRow := 0
	for r := range rows {
		if r > maxRow {
			maxRow = r
		}
	}
	lines := make([]string, maxRow+1)
	for r := range lines {
		// encoding/csv skips empty lines, so a blank row still needs one
		// separator to keep every later row at its line number.
		lines[r] = ","
	}
	for r, cols := range rows {
		maxCol := 0
		for c := range cols {
			if c > maxCol {
				maxCol = c
			}
		}
		fields := make([]string, maxCol+1)
		for c, v := range cols {
			fields[c] = v
		}
		lines[r] = strings.Join(fields, ",")
	}
	return strings.Join(lines, "\n") + "\n"
}

func newTestAmerigreenParser() *amerigreenParser {
	p := &amerigreenParser{}
	p.BaseParser = &BaseParser{
		FormatName:     "amerigreen",
		Spreadsheet:    tabular.NewSpreadsheetReader(tabular.FormatCSV),
		RoundingDigits: 4,
		DateGetter:     FileNameDateGetter{},
	}
	p.Extractor = p
	return p
}

func TestAmerigreenExtractQuotes(t *testing.T) {
	const brokerFeeRow = 25
	csv := amerigreenFixture(map[int]map[int]string{
		brokerFeeRow: {5: "0.02"}, // col F
		amerigreenQuoteStartRow: {
			2: "ConEd", 3: "NY", 4: "45718", 5: "12", 14: "0.47", // C D E F O
		},
		amerigreenQuoteStartRow + 1: {
			2: "PSEG", 3: "NJ", 4: "45718", 5: "24", 14: "0.52",
		},
		amerigreenQuoteStartRow + 2: {
			2: "", // blank utility marks end of quotes
		},
	})

	p := newTestAmerigreenParser()
	if err := p.Spreadsheet.Load(strings.NewReader(csv)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	p.ctx = Context{Spreadsheet: p.Spreadsheet, FileName: "amerigreen.xlsx"}

	var quotes []domain.Quote
	err := p.ExtractQuotes(&p.ctx, func(q domain.Quote) error {
		quotes = append(quotes, q)
		return nil
	})
	if err != nil {
		t.Fatalf("ExtractQuotes: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(quotes))
	}

	first := quotes[0]
	if first.RateClassAlias != "Amerigreen-gas-NY-ConEd" {
		t.Errorf("RateClassAlias = %q", first.RateClassAlias)
	}
	if first.TermMonths != 12 {
		t.Errorf("TermMonths = %d, want 12", first.TermMonths)
	}
	if first.Price != 0.45 {
		t.Errorf("Price = %v, want 0.45 (0.47 - 0.02 broker fee)", first.Price)
	}
	if *first.MinVolume != 0 || *first.LimitVolume != 50000 {
		t.Errorf("volume bounds = [%v, %v], want [0, 50000]", *first.MinVolume, *first.LimitVolume)
	}
	if first.FileReference != fmt.Sprintf("amerigreen.xlsx 0,%d,O", amerigreenQuoteStartRow) {
		t.Errorf("FileReference = %q", first.FileReference)
	}

	second := quotes[1]
	if second.RateClassAlias != "Amerigreen-gas-NJ-PSEG" || second.TermMonths != 24 {
		t.Errorf("second quote = %+v", second)
	}
}

func TestAmerigreenExtractQuotesStopsAtBlankUtility(t *testing.T) {
	csv := amerigreenFixture(map[int]map[int]string{
		25:                      {5: "0"},
		amerigreenQuoteStartRow: {2: ""},
	})
	p := newTestAmerigreenParser()
	if err := p.Spreadsheet.Load(strings.NewReader(csv)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	p.ctx = Context{Spreadsheet: p.Spreadsheet, FileName: "amerigreen.xlsx"}

	var quotes []domain.Quote
	err := p.ExtractQuotes(&p.ctx, func(q domain.Quote) error {
		quotes = append(quotes, q)
		return nil
	})
	if err != nil {
		t.Fatalf("ExtractQuotes: %v", err)
	}
	if len(quotes) != 0 {
		t.Errorf("got %d quotes, want 0", len(quotes))
	}
}
