package matrixparser

import (
	"fmt"
	"regexp"
	"time"

	"github.com/altitude-energy/matrix-ingest/internal/tabular"
	"github.com/altitude-energy/matrix-ingest/internal/units"
)

// Context is the subset of parser state a DateGetter needs: whichever
// reader the parser was built on, and the file it is reading. Exactly one
// of Spreadsheet/PDF is non-nil, matching which reader the concrete parser
// declared.
type Context struct {
	Spreadsheet *tabular.SpreadsheetReader
	PDF         *tabular.PDFReader
	FileName    string
	Format      string // the matrix format's attachment name pattern

	// validFrom/validUntil are filled in by BaseParser.ExtractQuotes once
	// the DateGetter runs, so an Extractor can read the resolved window.
	validFrom, validUntil time.Time
}

// ValidFrom and ValidUntil expose the resolved validity window to an
// Extractor; both are zero until BaseParser.ExtractQuotes has run the
// parser's DateGetter.
func (c *Context) ValidFrom() time.Time  { return c.validFrom }
func (c *Context) ValidUntil() time.Time { return c.validUntil }

// DateGetter determines the validity window (inclusive start, exclusive
// end) for every quote a parser extracts from one file.
type DateGetter interface {
	GetDates(ctx *Context) (validFrom, validUntil time.Time, err error)
}

func parseDate(s string) (any, error) {
	t, err := units.ParseFlexibleDate(s)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// SingleCellDateGetter reads a validity date from one cell of whichever
// reader the parser uses; quotes are assumed to expire one day after they
// become valid. If Regex is nil the cell is read directly as a date,
// number, or string; otherwise the cell text is matched against Regex and
// its one capture group is parsed as a date. Sheet/Col double as the PDF
// reader's page number and x coordinate when the parser is PDF-based.
type SingleCellDateGetter struct {
	Sheet any
	Row   float64
	Col   any
	Regex *regexp.Regexp
}

func (g *SingleCellDateGetter) dateFromCell(ctx *Context, row float64, col any) (time.Time, error) {
	dateConverter := func(s string) (any, error) { return parseDate(s) }

	switch {
	case ctx.Spreadsheet != nil:
		if g.Regex == nil {
			v, err := ctx.Spreadsheet.Get(g.Sheet, int(row), col, tabular.TypeDateTime)
			if err != nil {
				return time.Time{}, err
			}
			return v.(time.Time), nil
		}
		results, err := ctx.Spreadsheet.GetMatches(g.Sheet, int(row), col, g.Regex, dateConverter)
		if err != nil {
			return time.Time{}, err
		}
		return results[0].(time.Time), nil
	case ctx.PDF != nil:
		page, _ := g.Sheet.(int)
		x, _ := col.(float64)
		if g.Regex == nil {
			text, err := ctx.PDF.Get(page, row, x, tabular.TypeString)
			if err != nil {
				return time.Time{}, err
			}
			return units.ParseFlexibleDate(text)
		}
		results, err := ctx.PDF.GetMatches(page, row, x, g.Regex, nil, dateConverter)
		if err != nil {
			return time.Time{}, err
		}
		return results[0].(time.Time), nil
	default:
		return time.Time{}, fmt.Errorf("matrixparser: date getter requires a reader")
	}
}

func (g *SingleCellDateGetter) GetDates(ctx *Context) (time.Time, time.Time, error) {
	validFrom, err := g.dateFromCell(ctx, g.Row, g.Col)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return validFrom, validFrom.Add(24 * time.Hour), nil
}

// TwoCellsDateGetter reads separate start and end validity dates from two
// cells, rather than assuming a one-day window.
type TwoCellsDateGetter struct {
	SingleCellDateGetter
	EndRow float64
	EndCol any
}

func (g *TwoCellsDateGetter) GetDates(ctx *Context) (time.Time, time.Time, error) {
	validFrom, err := g.dateFromCell(ctx, g.Row, g.Col)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	validUntil, err := g.dateFromCell(ctx, g.EndRow, g.EndCol)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	// Two fuzzily-matched PDF coordinates sometimes land on the same text
	// box; treat that as a format problem rather than a one-day quote.
	if validFrom.Equal(validUntil) {
		return time.Time{}, time.Time{}, &tabular.FormatError{
			Msg: fmt.Sprintf("validity start and end dates are the same: %v", validFrom),
		}
	}
	return validFrom, validUntil.Add(24 * time.Hour), nil
}

// FileNameDateGetter extracts the validity date from the attachment file
// name, using the format's attachment-name pattern, which must have a
// capture group named "date".
type FileNameDateGetter struct{}

func (FileNameDateGetter) GetDates(ctx *Context) (time.Time, time.Time, error) {
	regex, err := regexp.Compile(ctx.Format)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("matrixparser: invalid attachment pattern %q: %w", ctx.Format, err)
	}
	groupIndex := -1
	for i, name := range regex.SubexpNames() {
		if name == "date" {
			groupIndex = i
			break
		}
	}
	if groupIndex == -1 {
		return time.Time{}, time.Time{}, fmt.Errorf(
			"matrixparser: attachment pattern %q must have a group named \"date\"", ctx.Format)
	}
	m := regex.FindStringSubmatch(ctx.FileName)
	if m == nil {
		return time.Time{}, time.Time{}, &tabular.FormatError{
			Msg: fmt.Sprintf("no match for %q in file name %q", ctx.Format, ctx.FileName),
		}
	}
	validFrom, err := units.ParseFlexibleDate(m[groupIndex])
	if err != nil {
		return time.Time{}, time.Time{}, &tabular.FormatError{Msg: err.Error()}
	}
	return validFrom, validFrom.Add(24 * time.Hour), nil
}
