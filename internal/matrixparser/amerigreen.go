package matrixparser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
	"github.com/altitude-energy/matrix-ingest/internal/preprocess"
	"github.com/altitude-energy/matrix-ingest/internal/tabular"
	"github.com/altitude-energy/matrix-ingest/internal/units"
)

const (
	amerigreenHeaderRow     = 28
	amerigreenQuoteStartRow = 29
)

// amerigreenParser reads Amerigreen's daily gas matrix, a single-sheet
// workbook listing one row per utility/state combination. Amerigreen
// builds its own broker fee into the published price, so it is subtracted
// back out before the quote is stored.
type amerigreenParser struct {
	*BaseParser
}

// NewAmerigreenParser builds the parser for the "amerigreen" matrix
// format.
func NewAmerigreenParser() Parser {
	p := &amerigreenParser{}
	p.BaseParser = &BaseParser{
		FormatName:  "amerigreen",
		Spreadsheet: tabular.NewSpreadsheetReader(tabular.FormatXLSX),
		RoundingDigits: 4,
		ExpectedCells: []ExpectedCell{
			{Sheet: 0, Row: 11, Col: "C", Regex: regexp.MustCompile(`AMERIgreen Energy Daily Matrix Pricing`)},
			{Sheet: 0, Row: 13, Col: "C", Regex: regexp.MustCompile(`Today's Date:`)},
			{Sheet: 0, Row: amerigreenHeaderRow, Col: "C", Regex: regexp.MustCompile(`LDC`)},
			{Sheet: 0, Row: amerigreenHeaderRow, Col: "D", Regex: regexp.MustCompile(`State`)},
			{Sheet: 0, Row: amerigreenHeaderRow, Col: "E", Regex: regexp.MustCompile(`Start Month`)},
			{Sheet: 0, Row: amerigreenHeaderRow, Col: "F", Regex: regexp.MustCompile(`Term \(Months\)`)},
		},
		DateGetter: FileNameDateGetter{},
	}
	p.Extractor = p
	return p
}

// Preprocess converts the mailed xlsx copy through LibreOffice, matching
// the original tooling's practice of re-saving the workbook before reading
// it (their openpyxl-based reader could not open the file directly; ours
// uses excelize instead, which wants a clean xlsx round-trip for the same
// reason).
func (p *amerigreenParser) Preprocess(fileName string, data []byte) (io.Reader, error) {
	scope, err := preprocess.NewScope()
	if err != nil {
		return nil, err
	}
	defer scope.Close()

	converter := preprocess.NewOfficeConverter("xlsx", "xlsx:Calc MS Excel 2007 XML")
	convertedPath, err := converter.Convert(scope, fileName, data)
	if err != nil {
		return nil, err
	}
	converted, err := os.ReadFile(convertedPath)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(converted), nil
}

func (p *amerigreenParser) ExtractQuotes(ctx *Context, emit QuoteSink) error {
	brokerFee, err := ctx.Spreadsheet.Get(0, 25, "F", tabular.TypeFloat)
	if err != nil {
		return err
	}

	const minVolume, limitVolume = 0.0, 50000.0

	height, err := ctx.Spreadsheet.Height(0)
	if err != nil {
		return err
	}

	for row := amerigreenQuoteStartRow; row < height; row++ {
		utility, err := ctx.Spreadsheet.Get(0, row, "C", tabular.TypeString)
		if err != nil {
			return err
		}
		if utility.(string) == "" {
			break
		}

		state, err := ctx.Spreadsheet.Get(0, row, "D", tabular.TypeString)
		if err != nil {
			return err
		}
		rateClassAlias := fmt.Sprintf("Amerigreen-gas-%s-%s", state, utility)

		termMonths, err := ctx.Spreadsheet.Get(0, row, "F", tabular.TypeInt)
		if err != nil {
			return err
		}

		startMonthNumber, err := ctx.Spreadsheet.Get(0, row, "E", tabular.TypeFloat)
		if err != nil {
			return err
		}
		startFrom := units.ExcelNumberToDateTime(startMonthNumber.(float64))
		startUntil := startFrom.AddDate(0, 0, 1)

		price, err := ctx.Spreadsheet.Get(0, row, "O", tabular.TypeFloat)
		if err != nil {
			return err
		}

		minVol, limitVol := minVolume, limitVolume
		err = emit(domain.Quote{
			ServiceType:    domain.Electric, // matches a long-standing quirk in the published data: despite the gas-prefixed alias, these rows are stored as electric
			RateClassAlias: rateClassAlias,
			StartFrom:      startFrom,
			StartUntil:     startUntil,
			TermMonths:     termMonths.(int),
			MinVolume:      &minVol,
			LimitVolume:    &limitVol,
			Price:          price.(float64) - brokerFee.(float64),
			FileReference:  fmt.Sprintf("%s 0,%d,O", ctx.FileName, row),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
