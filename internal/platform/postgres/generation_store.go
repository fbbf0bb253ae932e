package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/platform/logger"
	"github.com/atelierhq/atelier-api/internal/store"
	"github.com/google/uuid"
)

// PostgresGenerationStore implements the store.GenerationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGenerationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationStore creates a new PostgreSQL implementation of the
// GenerationStore interface.
func NewPostgresGenerationStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

// Ensure PostgresGenerationStore implements store.GenerationStore
var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

// CreateMultiple implements store.GenerationStore.CreateMultiple.
// All rows go in with a single multi-VALUES statement so a failure inserts
// nothing even outside an enclosing transaction.
func (s *PostgresGenerationStore) CreateMultiple(
	ctx context.Context,
	generations []*domain.Generation,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(generations) == 0 {
		return nil
	}

	for _, g := range generations {
		if err := g.Validate(); err != nil {
			log.Warn("generation validation failed during create",
				slog.String("error", err.Error()),
				slog.String("generation_id", g.ID.String()))
			return err
		}
	}

	query := `
		INSERT INTO generations (id, batch_id, async_task_id, seed, asset, created_at, updated_at)
		VALUES
	`
	args := make([]any, 0, len(generations)*7)
	for i, g := range generations {
		if i > 0 {
			query += ","
		}
		base := i * 7
		query += fmt.Sprintf(" ($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)

		var assetJSON any
		if g.Asset != nil {
			raw, err := json.Marshal(g.Asset)
			if err != nil {
				return fmt.Errorf("failed to marshal generation asset: %w", err)
			}
			assetJSON = raw
		}

		args = append(args, g.ID, g.BatchID, g.AsyncTaskID, g.Seed, assetJSON, g.CreatedAt, g.UpdatedAt)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to create generations",
			slog.String("error", err.Error()),
			slog.Int("count", len(generations)),
			slog.String("batch_id", generations[0].BatchID.String()))
		return MapError(err)
	}

	log.Debug("generations created",
		slog.Int("count", len(generations)),
		slog.String("batch_id", generations[0].BatchID.String()))
	return nil
}

// ListByBatch implements store.GenerationStore.ListByBatch
func (s *PostgresGenerationStore) ListByBatch(
	ctx context.Context,
	batchID uuid.UUID,
) ([]*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, batch_id, async_task_id, seed, asset, created_at, updated_at
		FROM generations
		WHERE batch_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, batchID)
	if err != nil {
		log.Error("failed to list generations",
			slog.String("error", err.Error()),
			slog.String("batch_id", batchID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	generations := []*domain.Generation{}
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}
		generations = append(generations, gen)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generation rows: %w", err)
	}

	return generations, nil
}

// GetByTaskID implements store.GenerationStore.GetByTaskID
func (s *PostgresGenerationStore) GetByTaskID(
	ctx context.Context,
	taskID uuid.UUID,
) (*domain.Generation, error) {
	query := `
		SELECT id, batch_id, async_task_id, seed, asset, created_at, updated_at
		FROM generations
		WHERE async_task_id = $1
	`

	gen, err := scanGeneration(s.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGenerationNotFound
		}
		return nil, MapError(err)
	}

	return gen, nil
}

// AttachAsset implements store.GenerationStore.AttachAsset
func (s *PostgresGenerationStore) AttachAsset(
	ctx context.Context,
	generationID uuid.UUID,
	asset domain.GeneratedAsset,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	assetJSON, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("failed to marshal generation asset: %w", err)
	}

	query := `
		UPDATE generations
		SET asset = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, assetJSON, time.Now().UTC(), generationID)
	if err != nil {
		log.Error("failed to attach asset",
			slog.String("error", err.Error()),
			slog.String("generation_id", generationID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrGenerationNotFound
	}

	log.Debug("asset attached to generation",
		slog.String("generation_id", generationID.String()),
		slog.String("asset_key", asset.Key))
	return nil
}

// WithTx implements store.GenerationStore.WithTx
func (s *PostgresGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return &PostgresGenerationStore{
		db:     tx,
		logger: s.logger,
	}
}

// scanGeneration reads one generation row.
func scanGeneration(row rowScanner) (*domain.Generation, error) {
	var gen domain.Generation
	var seed sql.NullInt64
	var assetJSON []byte

	err := row.Scan(
		&gen.ID,
		&gen.BatchID,
		&gen.AsyncTaskID,
		&seed,
		&assetJSON,
		&gen.CreatedAt,
		&gen.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if seed.Valid {
		gen.Seed = &seed.Int64
	}

	if len(assetJSON) > 0 {
		var asset domain.GeneratedAsset
		if err := json.Unmarshal(assetJSON, &asset); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generation asset: %w", err)
		}
		gen.Asset = &asset
	}

	return &gen, nil
}
