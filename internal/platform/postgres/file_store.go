package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/atelierhq/atelier-api/internal/platform/logger"
	"github.com/atelierhq/atelier-api/internal/store"
)

// PostgresFileStore implements the store.FileStore interface by reading the
// url-to-key mapping maintained by the upload pipeline.
type PostgresFileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFileStore creates a new PostgreSQL implementation of the
// FileStore interface.
func NewPostgresFileStore(db store.DBTX, logger *slog.Logger) *PostgresFileStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresFileStore{
		db:     db,
		logger: logger.With(slog.String("component", "file_store")),
	}
}

// Ensure PostgresFileStore implements store.FileStore
var _ store.FileStore = (*PostgresFileStore)(nil)

// ResolveKey implements store.FileStore.ResolveKey
func (s *PostgresFileStore) ResolveKey(ctx context.Context, url string) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var key string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT storage_key FROM files WHERE url = $1`,
		url,
	).Scan(&key)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrFileNotFound
		}
		log.Error("failed to resolve file key",
			slog.String("error", err.Error()))
		return "", MapError(err)
	}

	return key, nil
}
