package tabular

import (
	"regexp"
	"strconv"
	"strings"
)

// CellType is the expected type of an extracted cell/box value. It mirrors
// the handful of cases matrix parsers actually declare (EXPECTED_CELLS
// entries and typed Get calls): a free-form string, a number, a date, or
// "don't care, just compare for equality".
type CellType int

const (
	TypeString CellType = iota
	TypeInt
	TypeFloat
	TypeDateTime
	TypeAny
)

// Converter turns a regex-captured substring into a typed value.
// ParseNumberString, ParseIntString and ParseFloatString strip
// thousands-separator commas first, matching every
// supplier's habit of publishing volume figures as "150,000".
type Converter func(string) (any, error)

func ParseNumberString(s string) (any, error) {
	clean := strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil, err
	}
	if f == float64(int64(f)) {
		return int(f), nil
	}
	return f, nil
}

func ParseIntString(s string) (any, error) {
	clean := strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil, err
	}
	return int(f), nil
}

func ParseFloatString(s string) (any, error) {
	clean := strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(clean, 64)
}

func ParseStringString(s string) (any, error) {
	return s, nil
}

// ValidateAndConvertText matches regex against text and converts each
// capture group through the corresponding converter. It fails with
// FormatError if there is no match or the number of groups does not equal
// the number of converters, or if any group fails to convert.
func ValidateAndConvertText(regex *regexp.Regexp, text string, converters ...Converter) ([]any, error) {
	m := regex.FindStringSubmatch(text)
	if m == nil {
		return nil, formatErrorf("no match for %q in %q", regex.String(), text)
	}
	groups := m[1:]
	if len(groups) != len(converters) {
		return nil, formatErrorf("expected %d groups matching %q, found %d in %q",
			len(converters), regex.String(), len(groups), text)
	}
	results := make([]any, len(groups))
	for i, g := range groups {
		v, err := converters[i](g)
		if err != nil {
			return nil, formatErrorf("string %q could not be converted: %v", g, err)
		}
		results[i] = v
	}
	return results, nil
}
