package matrixparser

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
	"github.com/altitude-energy/matrix-ingest/internal/tabular"
	"github.com/altitude-energy/matrix-ingest/internal/units"
)

var (
	volunteerPricingLevelPattern = regexp.MustCompile(`PRICING LEVEL\n(?P<low>\d+)-(?P<high>[\d,r]+) Mcf.*`)
	volunteerUtilityNamePattern  = regexp.MustCompile(`(?s)^([A-Z()\s]{10,50}).*`)
	volunteerPricePattern        = regexp.MustCompile(`(\d*\.\d+)`)
	volunteerStartPattern        = regexp.MustCompile(`(?:Start\s+Month\s+)?([A-Za-z]{3})-(\d{4})\s*`)
	volunteerTermPattern         = regexp.MustCompile(`(?s)(?:.*\s+)?Term-(\d+) Month`)
)

var volunteerPriceRows = []float64{487, 455, 422}
var volunteerTermCols = []float64{189, 324, 465}
var volunteerPriceCols = []float64{189}
var volunteerAdderRows = []float64{225, 205, 190}

const (
	volunteerStartRow, volunteerStartCol = 539.0, 521.0
	volunteerTermRow                     = 520.0
	volunteerAdderCol                    = 291.0
)

var volunteerMonthAbbrs = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// volunteerParser reads Volunteer Energy's weekly gas matrix, a single-page
// PDF whose layout drifts slightly from week to week. Expected element
// positions are therefore matched fuzzily within a tolerance rather than
// at fixed coordinates, and the whole page is re-anchored on the
// "PRICING LEVEL" box each time (see AfterLoad).
type volunteerParser struct {
	*BaseParser
}

// NewVolunteerParser builds the parser for the "volunteer" matrix format.
func NewVolunteerParser() Parser {
	p := &volunteerParser{}
	p.BaseParser = &BaseParser{
		FormatName: "volunteer",
		PDF:        tabular.NewPDFReader(40),
		ExpectedElements: []ExpectedElement{
			{Page: 1, Y: 509, X: 70, Regex: volunteerPricingLevelPattern},
			{Page: 1, Y: 422, X: 70, Regex: regexp.MustCompile(`MARKET ULTRA`)},
		},
		DateGetter: &TwoCellsDateGetter{
			SingleCellDateGetter: SingleCellDateGetter{
				Sheet: 1, Row: 538, Col: 310.0,
				Regex: regexp.MustCompile(`(\d+/\d+/\d+)`),
			},
			EndRow: 538, EndCol: 380.0,
		},
	}
	p.Extractor = p
	return p
}

// AfterLoad anchors every subsequent coordinate lookup to wherever the
// "PRICING LEVEL" box actually landed in this week's file, relative to
// where it sat in the file the coordinates below were measured against.
func (p *volunteerParser) AfterLoad(ctx *Context) error {
	return ctx.PDF.SetOffsetByElement(volunteerPricingLevelPattern, 70, 509)
}

func (p *volunteerParser) Validate(ctx *Context) error {
	fuzzy := []struct {
		y, x  float64
		regex *regexp.Regexp
	}{
		{569, 265, regexp.MustCompile(`(?s).*Indicative Price Offers`)},
		{549, 391, regexp.MustCompile(`To:`)},
		{549, 329, regexp.MustCompile(`From:`)},
		{539, 470, regexp.MustCompile(`Start\nMonth`)},
		{538, 189, regexp.MustCompile(`Prices Effective for Week of:`)},
		{509, 455, regexp.MustCompile(`(?:Fixed)?(?:\s+Variable\*\*)?`)},
		{509, 314, regexp.MustCompile(`(?:Fixed)?(?:\s+Variable\*\*)?`)},
		{509, 172, regexp.MustCompile(`(?:Fixed)?(?:\s+Variable\*\*)?`)},
		{477, 70, regexp.MustCompile(`PREMIUM`)},
		{455, 70, regexp.MustCompile(`MARKET MID`)},
		{240, 237, regexp.MustCompile(`Projected Fee:\s*`)},
		{240, volunteerAdderCol, regexp.MustCompile(`Fixed`)},
		{volunteerAdderRows[0], 231, regexp.MustCompile(`Premium`)},
		{volunteerAdderRows[1], 231, regexp.MustCompile(`Market Mid`)},
		{volunteerAdderRows[2], 231, regexp.MustCompile(`Market Ultra`)},
	}
	tolerance := 40.0
	for _, f := range fuzzy {
		if _, err := ctx.PDF.GetMatches(1, f.y, f.x, f.regex, &tolerance); err != nil {
			return err
		}
	}
	return nil
}

func (p *volunteerParser) ExtractQuotes(ctx *Context, emit QuoteSink) error {
	rateClassMatches, err := ctx.PDF.GetMatches(1, 581, 241, volunteerUtilityNamePattern, floatPtr(50), tabular.ParseStringString)
	if err != nil {
		return err
	}
	rateClassAlias := fmt.Sprintf("Volunteer-gas-%s", rateClassMatches[0].(string))

	volumeRange, err := ExtractVolumeRange(ctx, 1, 509, 70.0, volunteerPricingLevelPattern, VolumeRangeOptions{
		ExpectedUnit: units.Mcf,
		TargetUnit:   units.CCF,
	})
	if err != nil {
		return err
	}
	minVol := float64(volumeRange.Low)
	var limitVol *float64
	if volumeRange.High != nil {
		v := float64(*volumeRange.High)
		limitVol = &v
	}

	startMatches, err := ctx.PDF.GetMatches(1, volunteerStartRow, volunteerStartCol, volunteerStartPattern, nil,
		tabular.ParseStringString, tabular.ParseIntString)
	if err != nil {
		return err
	}
	startMonthName := startMatches[0].(string)
	startYear := startMatches[1].(int)
	startMonth := -1
	for i, abbr := range volunteerMonthAbbrs {
		if abbr == startMonthName {
			startMonth = i + 1
			break
		}
	}
	if startMonth == -1 {
		return &tabular.FormatError{Msg: fmt.Sprintf("unrecognized month abbreviation %q", startMonthName)}
	}
	startFrom := time.Date(startYear, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	startUntil := units.MonthOf(startFrom).Add(1).First()

	adders, err := p.extractAdders(ctx)
	if err != nil {
		return err
	}

	for i, row := range volunteerPriceRows {
		adder := adders[i]
		for _, priceCol := range volunteerPriceCols {
			for _, termCol := range volunteerTermCols {
				termMatches, err := ctx.PDF.GetMatches(1, volunteerTermRow, termCol, volunteerTermPattern, nil, tabular.ParseIntString)
				if err != nil {
					return err
				}
				term := termMatches[0].(int)

				tolerance := 20.0
				priceMatches, err := ctx.PDF.GetMatches(1, row, priceCol, volunteerPricePattern, &tolerance, tabular.ParseFloatString)
				if err != nil {
					return err
				}
				price := priceMatches[0].(float64)

				err = emit(domain.Quote{
					ServiceType:    domain.Gas,
					RateClassAlias: rateClassAlias,
					StartFrom:      startFrom,
					StartUntil:     startUntil,
					TermMonths:     term,
					MinVolume:      &minVol,
					LimitVolume:    limitVol,
					Price:          price - adder,
					FileReference:  fmt.Sprintf("%s 1,%v,%v", ctx.FileName, row, priceCol),
				})
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// extractAdders reads the three per-level fee adders from the small table
// at the bottom of the page. Layout variation means the closest element to
// two different expected coordinates can be the same text box, so each
// pick excludes elements already used by an earlier row, and the final
// values must all differ from each other (three genuinely different price
// levels never happen to charge the same fee).
func (p *volunteerParser) extractAdders(ctx *Context) ([]float64, error) {
	var picked []tabular.Element
	for _, row := range volunteerAdderRows {
		candidates, err := ctx.PDF.FindMatchingElements(1, row, volunteerAdderCol, volunteerPricePattern)
		if err != nil {
			return nil, err
		}
		var chosen *tabular.Element
		for i := range candidates {
			if !elementPicked(picked, candidates[i]) {
				chosen = &candidates[i]
				break
			}
		}
		if chosen == nil {
			return nil, &tabular.FormatError{Msg: "no distinct adder element found"}
		}
		picked = append(picked, *chosen)
	}

	adders := make([]float64, len(picked))
	for i, el := range picked {
		v, err := strconv.ParseFloat(el.Text, 64)
		if err != nil {
			return nil, &tabular.FormatError{Msg: fmt.Sprintf("adder text %q is not a number", el.Text)}
		}
		adders[i] = v
	}
	for i := range adders {
		for j := i + 1; j < len(adders); j++ {
			if adders[i] == adders[j] {
				return nil, &tabular.FormatError{Msg: fmt.Sprintf("expected 3 different adders but some were the same: %v", adders)}
			}
		}
	}
	return adders, nil
}

func elementPicked(picked []tabular.Element, e tabular.Element) bool {
	for _, p := range picked {
		if p.X == e.X && p.Y == e.Y {
			return true
		}
	}
	return false
}

func floatPtr(f float64) *float64 { return &f }
