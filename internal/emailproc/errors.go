package emailproc

import (
	"fmt"
	"strings"
)

// EmailError means the MIME message itself was unreadable or missing a
// header this system requires before anything else can happen.
type EmailError struct {
	Msg string
	Err error
}

func (e *EmailError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("emailproc: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("emailproc: %s", e.Msg)
}

func (e *EmailError) Unwrap() error { return e.Err }

// UnknownSupplierError means the recipient address matched zero or more
// than one configured supplier.
type UnknownSupplierError struct {
	RecipientAddress string
	Matches          int
}

func (e *UnknownSupplierError) Error() string {
	return fmt.Sprintf("emailproc: %d suppliers matched recipient address %q", e.Matches, e.RecipientAddress)
}

// NoFilesError means the email had files but none of them matched a
// configured format.
type NoFilesError struct {
	Subject string
}

func (e *NoFilesError) Error() string {
	return fmt.Sprintf("emailproc: no files were read from %q", e.Subject)
}

// NoQuotesError means at least one file was parsed successfully but the
// email as a whole produced zero quotes.
type NoQuotesError struct {
	Subject string
}

func (e *NoQuotesError) Error() string {
	return fmt.Sprintf("emailproc: %q contained no quotes", e.Subject)
}

// FileError names the file a per-file processing error happened on.
type FileError struct {
	FileName string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%q: %v", e.FileName, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// MultipleErrors aggregates every file-level error encountered while
// processing one email. FileCount is the total number of files considered,
// not just the ones that errored.
type MultipleErrors struct {
	FileCount int
	Errors    []*FileError
}

func (e *MultipleErrors) Error() string {
	lines := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		lines[i] = fe.Error()
	}
	return fmt.Sprintf("%d files processed, %d error(s):\n%s", e.FileCount, len(e.Errors), strings.Join(lines, "\n"))
}
