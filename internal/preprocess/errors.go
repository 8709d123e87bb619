package preprocess

import "fmt"

// PreprocessingError reports that a file could not be converted into a
// readable form before parsing even began: the converter subprocess
// failed, produced no output, or the container held something unexpected.
// Like the tabular package's FormatError, it is always file-level and
// recoverable by skipping that file.
type PreprocessingError struct {
	Msg string
	Err error
}

func (e *PreprocessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *PreprocessingError) Unwrap() error { return e.Err }

func preprocessingErrorf(err error, format string, args ...any) error {
	return &PreprocessingError{Msg: fmt.Sprintf(format, args...), Err: err}
}
