package tabular

import "fmt"

// FormatError reports that a file's shape did not match what a reader or
// parser expected: a missing cell, a cell of the wrong type, a box no text
// element was found near, or a regex that did not match. It is always
// file-level and always recoverable by skipping that file.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return e.Msg }

func formatErrorf(format string, args ...any) error {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// ReadError reports that a file could not be loaded at all (corrupt
// archive, unsupported container format, I/O failure).
type ReadError struct {
	Msg string
	Err error
}

func (e *ReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ReadError) Unwrap() error { return e.Err }

func readErrorf(err error, format string, args ...any) error {
	return &ReadError{Msg: fmt.Sprintf(format, args...), Err: err}
}
