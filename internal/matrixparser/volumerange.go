package matrixparser

import (
	"regexp"

	"github.com/altitude-energy/matrix-ingest/internal/tabular"
	"github.com/altitude-energy/matrix-ingest/internal/units"
)

// VolumeRange is a contiguous band of energy consumption a quote's price
// applies to, in the parser's target unit.
type VolumeRange struct {
	Low  int
	High *int // nil means unbounded
}

// VolumeRangeOptions controls the fudging and unit conversion ExtractVolumeRange
// applies. Suppliers often publish volume breakpoints that are off by one
// from a round number (e.g. "15001-20000" meaning "15000-20000"); Fudge*
// corrects for that.
type VolumeRangeOptions struct {
	FudgeLow       bool
	FudgeHigh      bool
	FudgeBlockSize int
	ExpectedUnit   units.Unit
	TargetUnit     units.Unit
}

func (o VolumeRangeOptions) blockSize() int {
	if o.FudgeBlockSize == 0 {
		return 10
	}
	return o.FudgeBlockSize
}

func fudge(v int, blockSize int) int {
	switch {
	case v%blockSize == 1:
		return v - 1
	case v%blockSize == blockSize-1:
		return v + 1
	default:
		return v
	}
}

// ExtractVolumeRange reads a spreadsheet cell holding text like
// "150-200 MWh" or "Below 50,000 therms", matching regex, whose capture
// groups are named "low" and/or "high", converting both to opts.TargetUnit.
// A regex with only "high" implies a low bound of 0; a regex with only
// "low" implies an unbounded high.
func ExtractVolumeRange(ctx *Context, sheet any, row float64, col any, regex *regexp.Regexp, opts VolumeRangeOptions) (VolumeRange, error) {
	names := regex.SubexpNames()
	lowIndex, highIndex := -1, -1
	for i, name := range names {
		switch name {
		case "low":
			lowIndex = i
		case "high":
			highIndex = i
		}
	}

	converters := make([]tabular.Converter, len(names)-1)
	for i := range converters {
		converters[i] = tabular.ParseIntString
	}

	var values []any
	var err error
	switch {
	case ctx.Spreadsheet != nil:
		values, err = ctx.Spreadsheet.GetMatches(sheet, int(row), col, regex, converters...)
	case ctx.PDF != nil:
		page, _ := sheet.(int)
		x, _ := col.(float64)
		values, err = ctx.PDF.GetMatches(page, row, x, regex, nil, converters...)
	default:
		return VolumeRange{}, &tabular.FormatError{Msg: "ExtractVolumeRange requires a reader"}
	}
	if err != nil {
		return VolumeRange{}, err
	}

	var lowRaw, highRaw *int
	if lowIndex > 0 {
		v := values[lowIndex-1].(int)
		lowRaw = &v
	}
	if highIndex > 0 {
		v := values[highIndex-1].(int)
		highRaw = &v
	}

	blockSize := opts.blockSize()
	result := VolumeRange{}
	if lowRaw != nil {
		v := *lowRaw
		if opts.FudgeLow {
			v = fudge(v, blockSize)
		}
		converted, err := units.ConvertInt(v, opts.ExpectedUnit, opts.TargetUnit)
		if err != nil {
			return VolumeRange{}, err
		}
		result.Low = converted
	}
	if highRaw != nil {
		v := *highRaw
		if opts.FudgeHigh {
			v = fudge(v, blockSize)
		}
		converted, err := units.ConvertInt(v, opts.ExpectedUnit, opts.TargetUnit)
		if err != nil {
			return VolumeRange{}, err
		}
		result.High = &converted
	}
	return result, nil
}

// ExtractVolumeRangeHorizontal extracts a volume range from each column in
// [startCol, endCol] of row, and checks that consecutive ranges are
// contiguous (one's High equals the next's Low), unless allowRestartingAt0
// is set and the next range starts at 0.
func ExtractVolumeRangeHorizontal(ctx *Context, sheet any, row float64, startCol, endCol any, regex *regexp.Regexp, allowRestartingAt0 bool, opts VolumeRangeOptions) ([]VolumeRange, error) {
	cols, err := tabular.ColumnRange(startCol, endCol, 1, true)
	if err != nil {
		return nil, err
	}
	result := make([]VolumeRange, len(cols))
	for i, col := range cols {
		vr, err := ExtractVolumeRange(ctx, sheet, row, col, regex, opts)
		if err != nil {
			return nil, err
		}
		result[i] = vr
	}
	for i := 0; i < len(result)-1; i++ {
		next := result[i+1]
		if allowRestartingAt0 && next.Low == 0 {
			continue
		}
		if result[i].High == nil || *result[i].High != next.Low {
			return nil, &tabular.FormatError{Msg: "volume ranges are not contiguous"}
		}
	}
	return result, nil
}
