package store

import "context"

// FileStore resolves full URLs handed in by clients to storage-relative
// keys. The file rows themselves are written by the upload pipeline, which
// is outside this service; we only read the mapping.
type FileStore interface {
	// ResolveKey returns the storage key for a previously uploaded file
	// addressed by its public URL.
	// Returns ErrFileNotFound if no file matches the URL.
	ResolveKey(ctx context.Context, url string) (string, error)
}
