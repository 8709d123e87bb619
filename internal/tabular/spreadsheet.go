package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/altitude-energy/matrix-ingest/internal/units"
)

// HeaderRow is the sentinel row number that addresses a sheet's header row,
// matching spreadsheet UIs where row 1 is the first data row below the
// header and the header itself has no natural row number.
const HeaderRow = -1

// SpreadsheetFormat selects which decoder Load uses.
type SpreadsheetFormat int

const (
	FormatXLSX SpreadsheetFormat = iota
	FormatCSV
)

type sheet struct {
	title  string
	header []string
	rows   [][]string
}

// SpreadsheetReader gives coordinate-addressed, type-checked access to the
// cells of an xlsx workbook or a CSV file. Columns may be addressed by
// 0-based index or by spreadsheet-style letter (A, B, ..., Z, AA, ...); rows
// are 1-based as shown in spreadsheet UIs, with HeaderRow addressing the
// header.
type SpreadsheetReader struct {
	format SpreadsheetFormat
	sheets []sheet
}

// NewSpreadsheetReader constructs a reader for the given format. Readers are
// constructed empty and loaded via Load, matching the parser framework's
// load/validate/extract lifecycle.
func NewSpreadsheetReader(format SpreadsheetFormat) *SpreadsheetReader {
	return &SpreadsheetReader{format: format}
}

// Load reads the whole workbook or CSV into memory. CSV is treated as a
// single unnamed sheet with the first row as the header, matching how the
// original tooling handles single-sheet formats uniformly with multi-sheet
// ones.
func (r *SpreadsheetReader) Load(src io.Reader) error {
	switch r.format {
	case FormatXLSX:
		return r.loadXLSX(src)
	case FormatCSV:
		return r.loadCSV(src)
	default:
		return readErrorf(nil, "unknown spreadsheet format %d", r.format)
	}
}

func (r *SpreadsheetReader) loadXLSX(src io.Reader) error {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return readErrorf(err, "opening xlsx")
	}
	defer f.Close()

	var sheets []sheet
	for _, name := range f.GetSheetList() {
		allRows, err := f.GetRows(name)
		if err != nil {
			return readErrorf(err, "reading sheet %q", name)
		}
		if len(allRows) == 0 {
			sheets = append(sheets, sheet{title: name})
			continue
		}
		sheets = append(sheets, sheet{title: name, header: allRows[0], rows: allRows[1:]})
	}
	r.sheets = sheets
	return nil
}

func (r *SpreadsheetReader) loadCSV(src io.Reader) error {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	allRows, err := cr.ReadAll()
	if err != nil {
		return readErrorf(err, "reading csv")
	}
	if len(allRows) == 0 {
		r.sheets = []sheet{{}}
		return nil
	}
	r.sheets = []sheet{{header: allRows[0], rows: allRows[1:]}}
	return nil
}

func (r *SpreadsheetReader) IsLoaded() bool {
	return r.sheets != nil
}

// SheetTitles returns the titles of all sheets, in workbook order.
func (r *SpreadsheetReader) SheetTitles() []string {
	titles := make([]string, len(r.sheets))
	for i, s := range r.sheets {
		titles[i] = s.title
	}
	return titles
}

func (r *SpreadsheetReader) sheetAt(sheetNumberOrTitle any) (*sheet, error) {
	switch v := sheetNumberOrTitle.(type) {
	case int:
		if v < 0 || v >= len(r.sheets) {
			return nil, formatErrorf("no sheet %d", v)
		}
		return &r.sheets[v], nil
	case string:
		for i := range r.sheets {
			if r.sheets[i].title == v {
				return &r.sheets[i], nil
			}
		}
		return nil, formatErrorf("no sheet named %q", v)
	default:
		return nil, formatErrorf("invalid sheet specifier %v", sheetNumberOrTitle)
	}
}

// Height returns the number of data rows in a sheet (not counting the
// header), plus one, matching the original row numbering where row 1 is the
// first data row.
func (r *SpreadsheetReader) Height(sheetNumberOrTitle any) (int, error) {
	s, err := r.sheetAt(sheetNumberOrTitle)
	if err != nil {
		return 0, err
	}
	return len(s.rows) + 1, nil
}

func (r *SpreadsheetReader) Width(sheetNumberOrTitle any) (int, error) {
	s, err := r.sheetAt(sheetNumberOrTitle)
	if err != nil {
		return 0, err
	}
	return len(s.header), nil
}

// ColLetterToIndex converts a spreadsheet column letter (A, B, ..., Z, AA,
// ...) to a 0-based index. Integers pass through unchanged.
func ColLetterToIndex(col any) (int, error) {
	switch v := col.(type) {
	case int:
		return v, nil
	case string:
		letter := strings.ToUpper(v)
		result := 0
		for _, c := range letter {
			if c < 'A' || c > 'Z' {
				return 0, fmt.Errorf("invalid column letter %q", v)
			}
			result = result*26 + int(c-'A'+1)
		}
		return result - 1, nil
	default:
		return 0, fmt.Errorf("invalid column specifier %v", col)
	}
}

// ColumnRange yields integer column indices between start and stop
// (inclusive by default), accepting letters or indices at either end.
func ColumnRange(start, stop any, step int, inclusive bool) ([]int, error) {
	if step == 0 {
		step = 1
	}
	s, err := ColLetterToIndex(start)
	if err != nil {
		return nil, err
	}
	e, err := ColLetterToIndex(stop)
	if err != nil {
		return nil, err
	}
	if inclusive {
		e++
	}
	var out []int
	for i := s; i < e; i += step {
		out = append(out, i)
	}
	return out, nil
}

func rowIndex(row int) (int, error) {
	if row == HeaderRow {
		return -1, nil
	}
	if row < 0 {
		return 0, fmt.Errorf("negative row number %d", row)
	}
	return row - 1, nil
}

func (r *SpreadsheetReader) cellText(s *sheet, rowIdx, colIdx int) (string, bool) {
	if rowIdx == -1 {
		if colIdx < 0 || colIdx >= len(s.header) {
			return "", false
		}
		return s.header[colIdx], true
	}
	if rowIdx < 0 || rowIdx >= len(s.rows) {
		return "", false
	}
	rowData := s.rows[rowIdx]
	if colIdx < 0 || colIdx >= len(rowData) {
		return "", false
	}
	return rowData[colIdx], true
}

// Get returns the value at (sheet, row, col), converted to expectedType.
// Fails with FormatError if the cell does not exist or cannot be converted
// to the requested type.
func (r *SpreadsheetReader) Get(sheetNumberOrTitle any, row int, col any, expectedType CellType) (any, error) {
	s, err := r.sheetAt(sheetNumberOrTitle)
	if err != nil {
		return nil, err
	}
	rowIdx, err := rowIndex(row)
	if err != nil {
		return nil, formatErrorf("%v", err)
	}
	colIdx, err := ColLetterToIndex(col)
	if err != nil {
		return nil, formatErrorf("%v", err)
	}
	text, ok := r.cellText(s, rowIdx, colIdx)
	if !ok {
		return nil, formatErrorf("no cell (%d, %v) in sheet %v", row, col, sheetNumberOrTitle)
	}

	switch expectedType {
	case TypeString, TypeAny:
		return text, nil
	case TypeInt:
		v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
		if err != nil {
			return nil, r.wrongType(s, rowIdx, colIdx, row, col, sheetNumberOrTitle, "int", text)
		}
		return int(v), nil
	case TypeFloat:
		v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
		if err != nil {
			return nil, r.wrongType(s, rowIdx, colIdx, row, col, sheetNumberOrTitle, "float", text)
		}
		return v, nil
	case TypeDateTime:
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return units.ExcelNumberToDateTime(v), nil
		}
		if t, err := units.ParseFlexibleDate(text); err == nil {
			return t, nil
		}
		return nil, r.wrongType(s, rowIdx, colIdx, row, col, sheetNumberOrTitle, "datetime", text)
	default:
		return text, nil
	}
}

func (r *SpreadsheetReader) wrongType(s *sheet, rowIdx, colIdx int, row int, col, sheetSpec any, wantType, found string) error {
	neighbor := func(label string, dr, dc int) string {
		t, ok := r.cellText(s, rowIdx+dr, colIdx+dc)
		if !ok {
			return fmt.Sprintf("%s: <none>", label)
		}
		return fmt.Sprintf("%s: %s", label, t)
	}
	neighbors := strings.Join([]string{
		neighbor("up", -1, 0), neighbor("down", 1, 0),
		neighbor("left", 0, -1), neighbor("right", 0, 1),
	}, " ")
	return formatErrorf("at (%v, %d, %v), expected type %s, found %q. neighbors are %s",
		sheetSpec, row, col, wantType, found, neighbors)
}

// GetMatches fetches the cell at (sheet, row, col) as a string, matches
// regex against it, and converts each capture group to the requested
// converters.
func (r *SpreadsheetReader) GetMatches(sheetNumberOrTitle any, row int, col any, regex *regexp.Regexp, converters ...Converter) ([]any, error) {
	text, err := r.Get(sheetNumberOrTitle, row, col, TypeString)
	if err != nil {
		return nil, err
	}
	return ValidateAndConvertText(regex, text.(string), converters...)
}
