package genimage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// AssetKey returns the storage key for a generation's rendered image.
func AssetKey(generationID uuid.UUID) string {
	return fmt.Sprintf("generations/%s.png", generationID)
}

// AssetSink persists rendered image bytes under a storage key.
type AssetSink interface {
	Save(ctx context.Context, key string, data []byte) error
}

// DiskSink stores assets as files under a local directory, keyed by their
// storage key.
type DiskSink struct {
	dir string
}

// NewDiskSink creates a DiskSink rooted at dir.
func NewDiskSink(dir string) (*DiskSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("asset directory cannot be empty")
	}
	return &DiskSink{dir: dir}, nil
}

// Save writes the asset bytes to disk, creating parent directories as
// needed.
func (s *DiskSink) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create asset directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write asset %s: %w", key, err)
	}
	return nil
}
