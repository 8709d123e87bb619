// Package objectstore archives the raw bytes of every file this system
// processes, keyed by file name, in an S3-compatible bucket. Archival
// happens before parsing so an invalid file is still captured for later
// inspection.
package objectstore

import "context"

// ObjectStorage is the minimal S3-compatible surface the pipeline needs:
// every processed file is archived on write and never read back by this
// system, so the interface only names that one operation. Client exposes
// listing and download as well, for operator tooling built against the
// concrete type.
type ObjectStorage interface {
	// UploadObject stores data under key, overwriting any existing object
	// with the same key.
	UploadObject(ctx context.Context, key string, data []byte) error
}
