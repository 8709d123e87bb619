package preprocess

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
)

// ExtractSingleFile unzips data and returns the contents of its one entry.
// Matrix suppliers that zip their attachments always send exactly one file
// per zip; anything else indicates an unexpected format.
func ExtractSingleFile(data []byte) (name string, content []byte, err error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, preprocessingErrorf(err, "opening zip archive")
	}
	if len(r.File) != 1 {
		names := make([]string, len(r.File))
		for i, f := range r.File {
			names[i] = f.Name
		}
		return "", nil, preprocessingErrorf(nil, "expected 1 file in zip, found %d: %s",
			len(r.File), strings.Join(names, ", "))
	}

	entry := r.File[0]
	rc, err := entry.Open()
	if err != nil {
		return "", nil, preprocessingErrorf(err, "opening zip entry %q", entry.Name)
	}
	defer rc.Close()

	content, err = io.ReadAll(rc)
	if err != nil {
		return "", nil, preprocessingErrorf(err, "reading zip entry %q", entry.Name)
	}
	return entry.Name, content, nil
}
