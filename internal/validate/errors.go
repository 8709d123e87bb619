package validate

import "strings"

// ValidationError collects every bound violation found in a single quote.
// A quote can be wrong in more than one dimension at once (e.g. an
// out-of-range price and an inverted date range); reporting all of them in
// one error gives whoever reads the log the full picture instead of just
// the first problem encountered.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, ". ")
}

func newValidationError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}
