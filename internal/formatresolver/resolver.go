// Package formatresolver picks the MatrixFormat that governs how one file
// from a supplier's email should be parsed.
package formatresolver

import (
	"fmt"
	"regexp"

	"github.com/altitude-energy/matrix-ingest/internal/domain"
)

// UnknownFormatError means zero or more than one MatrixFormat matched a
// file; recoverable at the caller's discretion (per file, not per email).
type UnknownFormatError struct {
	FileName string
	Matches  int
}

func (e *UnknownFormatError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("formatresolver: no formats matched file name %q", e.FileName)
	}
	return fmt.Sprintf("formatresolver: %d formats matched file name %q", e.Matches, e.FileName)
}

// Resolve returns the one MatrixFormat among formats whose match_body flag
// equals isBody and whose attachment pattern either is empty (wildcard) or
// matches fileName case-insensitively, with "." matching newline so a
// pattern can span a multi-line email subject. The match is anchored at
// the start of fileName, mirroring Python's re.match semantics the pattern
// was written against. Zero or multiple matches is an UnknownFormatError.
func Resolve(formats []domain.MatrixFormat, fileName string, isBody bool) (domain.MatrixFormat, error) {
	var matched []domain.MatrixFormat
	for _, f := range formats {
		if f.MatchBody != isBody {
			continue
		}
		if f.AttachmentPattern == "" {
			matched = append(matched, f)
			continue
		}
		ok, err := matchesPattern(f.AttachmentPattern, fileName)
		if err != nil {
			return domain.MatrixFormat{}, fmt.Errorf("formatresolver: format %q: %w", f.Name, err)
		}
		if ok {
			matched = append(matched, f)
		}
	}
	if len(matched) != 1 {
		return domain.MatrixFormat{}, &UnknownFormatError{FileName: fileName, Matches: len(matched)}
	}
	return matched[0], nil
}

func matchesPattern(pattern, fileName string) (bool, error) {
	regex, err := regexp.Compile(`\A(?is)` + pattern)
	if err != nil {
		return false, fmt.Errorf("invalid attachment pattern %q: %w", pattern, err)
	}
	return regex.MatchString(fileName), nil
}
