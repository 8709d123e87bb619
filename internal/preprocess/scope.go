// Package preprocess converts supplier attachments that are not directly
// readable by the tabular readers (legacy Office formats, scanned PDFs,
// single-entry zip archives) into a form those readers accept.
package preprocess

import (
	"fmt"
	"os"
)

// Scope is a temporary directory whose lifetime is tied to a single file's
// conversion. Each attachment gets its own Scope so concurrent conversions
// (different attachments of the same email, or different emails) never
// collide on file names.
type Scope struct {
	dir string
}

// NewScope creates a fresh temporary directory.
func NewScope() (*Scope, error) {
	dir, err := os.MkdirTemp("", "matrix-ingest-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	return &Scope{dir: dir}, nil
}

// Dir is the scratch directory's path.
func (s *Scope) Dir() string { return s.dir }

// Path joins name onto the scratch directory.
func (s *Scope) Path(name string) string {
	return s.dir + string(os.PathSeparator) + name
}

// Close removes the scratch directory and everything in it.
func (s *Scope) Close() error {
	return os.RemoveAll(s.dir)
}
