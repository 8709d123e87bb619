package units

import (
	"fmt"
	"strings"
	"time"
)

// excelEpoch is the date that day 0 represents in the numeric date encoding
// most spreadsheet readers use (including the off-by-one leap-year bug
// Excel inherited from Lotus 1-2-3, which is why this is Dec 30 rather than
// Dec 31 1899).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ExcelNumberToDateTime converts a spreadsheet date serial number (days
// since the spreadsheet epoch) to a time.Time.
func ExcelNumberToDateTime(number float64) time.Time {
	days := time.Duration(number*24) * time.Hour
	return excelEpoch.Add(days)
}

// ExcelDateTimeToNumber is the inverse of ExcelNumberToDateTime.
func ExcelDateTimeToNumber(t time.Time) float64 {
	return t.Sub(excelEpoch).Hours() / 24
}

// dateLayouts are tried in order by ParseFlexibleDate. Supplier matrix
// files use a handful of human-entered date formats; this list covers the
// ones observed in practice rather than attempting general natural-language
// date parsing.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102",
}

// ParseFlexibleDate parses a date string using the small set of layouts
// matrix files are known to use. Common separator variants (underscore in
// place of hyphen) are normalised first, matching the FileName DateGetter's
// handling of file-name-embedded dates.
func ParseFlexibleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "_", "-")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("units: could not parse date %q", s)
}

// Month represents a calendar year+month, independent of day. It backs the
// start-range arithmetic parsers use to compute contract start windows
// (typically "the whole of one calendar month").
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the Month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// First returns the first instant of the month.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Last returns the first instant of the last day of the month.
func (m Month) Last() time.Time {
	return m.Add(1).First().Add(-24 * time.Hour)
}

// Add returns the Month n months later (n may be negative).
func (m Month) Add(n int) Month {
	total := int(m.Month) - 1 + n
	years := total / 12
	month := total % 12
	if month < 0 {
		month += 12
		years--
	}
	return Month{Year: m.Year + years, Month: time.Month(month + 1)}
}
