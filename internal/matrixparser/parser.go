// Package matrixparser implements the per-supplier parsing framework:
// a common load/validate/extract lifecycle (BaseParser), the date- and
// volume-range-extraction helpers every concrete parser composes, and a
// static registry mapping format names to parser constructors.
package matrixparser

import (
	"fmt"
	"io"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
	"github.com/altitude-energy/matrix-ingest/internal/tabular"
)

// QuoteSink receives one extracted quote at a time. A concrete parser
// calls it once per row/page element as it walks the file, rather than
// building a slice, so a caller can batch and insert quotes without ever
// holding the whole file's output in memory at once.
type QuoteSink func(domain.Quote) error

// Parser is implemented by every supplier-specific matrix format. The
// lifecycle is always Load, then Validate, then ExtractQuotes; a parser
// may be reused across files by calling Load again.
type Parser interface {
	Name() string
	Load(src io.Reader, fileName string, format domain.MatrixFormat) error
	Validate() error
	ExtractQuotes(emit QuoteSink) error
	Count() int
}

// Extractor is implemented by each concrete parser to produce its quotes,
// once BaseParser has confirmed the file is loaded and validated. It
// streams results through emit instead of returning a slice, so large
// matrix files never need to be fully buffered before anything is
// persisted.
type Extractor interface {
	ExtractQuotes(ctx *Context, emit QuoteSink) error
}

// Validator is optionally implemented by a concrete parser to add checks
// beyond the declarative ExpectedCells/ExpectedElements lists.
type Validator interface {
	Validate(ctx *Context) error
}

// AfterLoader is optionally implemented by a concrete parser that needs to
// do something once the file is loaded but before it is validated, such as
// anchoring a PDF reader's coordinate offset on a known element.
type AfterLoader interface {
	AfterLoad(ctx *Context) error
}

// Preprocessor is optionally implemented by a concrete parser whose
// supplier files need conversion before any reader can open them (legacy
// Office formats, scanned PDFs needing table extraction). It receives the
// raw attachment bytes and returns a reader over the converted form.
type Preprocessor interface {
	Preprocess(fileName string, data []byte) (io.Reader, error)
}

// ExpectedCell names a spreadsheet cell whose value BaseParser checks
// during Validate, to catch a supplier silently changing their layout. If
// Regex is non-nil the cell's text must match it; otherwise the cell's raw
// value must equal Value.
type ExpectedCell struct {
	Sheet any
	Row   int
	Col   any
	Regex *regexp.Regexp
	Value any
}

// ExpectedElement is the PDF analogue of ExpectedCell, checked near a
// given coordinate.
type ExpectedElement struct {
	Page  int
	Y, X  float64
	Regex *regexp.Regexp
}

// BaseParser implements the common Parser lifecycle. Concrete parsers
// embed it and set Name/Reader/ExpectedSheetTitles/ExpectedCells/
// DateGetter/RoundingDigits in their constructor, then provide an
// Extractor (usually themselves).
type BaseParser struct {
	FormatName           string
	Spreadsheet          *tabular.SpreadsheetReader
	PDF                  *tabular.PDFReader
	ExpectedSheetTitles  []string
	ExpectedCells        []ExpectedCell
	ExpectedElements     []ExpectedElement
	DateGetter           DateGetter
	RoundingDigits       int // 0 means "do not round"
	Extractor            Extractor

	fileName     string
	matrixFormat domain.MatrixFormat
	validated    bool
	count        int
	ctx          Context
}

func (p *BaseParser) Name() string { return p.FormatName }

func (p *BaseParser) Count() int { return p.count }

// Load reads src with whichever reader the concrete parser configured.
func (p *BaseParser) Load(src io.Reader, fileName string, format domain.MatrixFormat) error {
	if pp, ok := p.Extractor.(Preprocessor); ok {
		data, err := io.ReadAll(src)
		if err != nil {
			return err
		}
		src, err = pp.Preprocess(fileName, data)
		if err != nil {
			return err
		}
	}

	var err error
	switch {
	case p.Spreadsheet != nil:
		err = p.Spreadsheet.Load(src)
	case p.PDF != nil:
		err = p.PDF.Load(src)
	default:
		return fmt.Errorf("matrixparser: parser %q has no reader configured", p.FormatName)
	}
	if err != nil {
		return err
	}

	p.validated = false
	p.count = 0
	p.fileName = fileName
	p.matrixFormat = format
	p.ctx = Context{
		Spreadsheet: p.Spreadsheet,
		PDF:         p.PDF,
		FileName:    fileName,
		Format:      format.AttachmentPattern,
	}

	if al, ok := p.Extractor.(AfterLoader); ok {
		return al.AfterLoad(&p.ctx)
	}
	return nil
}

// Validate checks the file against the declarative expectations and any
// parser-specific checks. It does not attempt to find every problem the
// file might have, only to detect a format the parser was not written for.
func (p *BaseParser) Validate() error {
	if p.ExpectedSheetTitles != nil {
		if p.Spreadsheet == nil {
			return fmt.Errorf("matrixparser: ExpectedSheetTitles requires a spreadsheet reader")
		}
		actual := make(map[string]bool, len(p.Spreadsheet.SheetTitles()))
		for _, t := range p.Spreadsheet.SheetTitles() {
			actual[t] = true
		}
		for _, want := range p.ExpectedSheetTitles {
			if !actual[want] {
				return &tabular.FormatError{Msg: fmt.Sprintf(
					"expected sheet titled %q, actual sheets %v", want, p.Spreadsheet.SheetTitles())}
			}
		}
	}

	for _, cell := range p.ExpectedCells {
		if cell.Regex != nil {
			text, err := p.Spreadsheet.Get(cell.Sheet, cell.Row, cell.Col, tabular.TypeString)
			if err != nil {
				return err
			}
			if !cell.Regex.MatchString(text.(string)) {
				return &tabular.FormatError{Msg: fmt.Sprintf(
					"no match for %q in %q", cell.Regex.String(), text)}
			}
			continue
		}
		actual, err := p.Spreadsheet.Get(cell.Sheet, cell.Row, cell.Col, tabular.TypeAny)
		if err != nil {
			return err
		}
		if actual != cell.Value {
			return &tabular.FormatError{Msg: fmt.Sprintf("expected %v, found %v", cell.Value, actual)}
		}
	}

	for _, el := range p.ExpectedElements {
		text, err := p.PDF.Get(el.Page, el.Y, el.X, tabular.TypeString)
		if err != nil {
			return err
		}
		if !el.Regex.MatchString(text) {
			return &tabular.FormatError{Msg: fmt.Sprintf("no match for %q in %q", el.Regex.String(), text)}
		}
	}

	if v, ok := p.Extractor.(Validator); ok {
		if err := v.Validate(&p.ctx); err != nil {
			return err
		}
	}

	p.validated = true
	return nil
}

// ExtractQuotes validates the file if not already validated, resolves the
// validity window via DateGetter, and delegates to the Extractor, applying
// price rounding and the resolved validity window to every quote as it
// streams through. emit is called once per quote in file order; memory use
// stays O(1) per quote regardless of how many the file contains.
func (p *BaseParser) ExtractQuotes(emit QuoteSink) error {
	if !p.validated {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	var validFrom, validUntil = p.ctx.validFrom, p.ctx.validUntil
	if p.DateGetter != nil {
		var err error
		validFrom, validUntil, err = p.DateGetter.GetDates(&p.ctx)
		if err != nil {
			return err
		}
		p.ctx.validFrom, p.ctx.validUntil = validFrom, validUntil
	}

	return p.Extractor.ExtractQuotes(&p.ctx, func(q domain.Quote) error {
		if p.RoundingDigits > 0 {
			q.Price = roundTo(q.Price, p.RoundingDigits)
		}
		if p.DateGetter != nil {
			q.ValidFrom = validFrom
			q.ValidUntil = validUntil
		}
		p.count++
		return emit(q)
	})
}

// roundTo rounds v to the given number of decimal digits using banker's-
// free half-away-from-zero rounding, matching Python's round() behavior the
// suppliers' published prices were originally checked against. decimal is
// used rather than float math to avoid binary floating-point rounding
// surprises at the exact halfway point.
func roundTo(v float64, digits int) float64 {
	f, _ := decimal.NewFromFloat(v).Round(int32(digits)).Float64()
	return f
}
