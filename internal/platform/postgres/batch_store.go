package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/platform/logger"
	"github.com/atelierhq/atelier-api/internal/store"
	"github.com/google/uuid"
)

// PostgresGenerationBatchStore implements the store.GenerationBatchStore
// interface using a PostgreSQL database as the storage backend.
type PostgresGenerationBatchStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationBatchStore creates a new PostgreSQL implementation of
// the GenerationBatchStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller.
func NewPostgresGenerationBatchStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationBatchStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGenerationBatchStore{
		db:     db,
		logger: logger.With(slog.String("component", "batch_store")),
	}
}

// Ensure PostgresGenerationBatchStore implements store.GenerationBatchStore
var _ store.GenerationBatchStore = (*PostgresGenerationBatchStore)(nil)

// Create implements store.GenerationBatchStore.Create
func (s *PostgresGenerationBatchStore) Create(ctx context.Context, batch *domain.GenerationBatch) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := batch.Validate(); err != nil {
		log.Warn("batch validation failed during create",
			slog.String("error", err.Error()),
			slog.String("batch_id", batch.ID.String()))
		return err
	}

	configJSON, err := json.Marshal(batch.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal batch config: %w", err)
	}

	query := `
		INSERT INTO generation_batches
			(id, user_id, topic_id, provider, model, prompt, width, height, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		batch.ID,
		batch.UserID,
		batch.TopicID,
		batch.Provider,
		batch.Model,
		batch.Prompt,
		batch.Width,
		batch.Height,
		configJSON,
		batch.CreatedAt,
		batch.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create generation batch",
			slog.String("error", err.Error()),
			slog.String("batch_id", batch.ID.String()),
			slog.String("user_id", batch.UserID.String()))
		return MapError(err)
	}

	log.Debug("generation batch created",
		slog.String("batch_id", batch.ID.String()),
		slog.String("provider", batch.Provider),
		slog.String("model", batch.Model))
	return nil
}

// GetByID implements store.GenerationBatchStore.GetByID.
// Batches are user-scoped: the row must belong to the given user.
func (s *PostgresGenerationBatchStore) GetByID(
	ctx context.Context,
	id, userID uuid.UUID,
) (*domain.GenerationBatch, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, topic_id, provider, model, prompt, width, height, config, created_at, updated_at
		FROM generation_batches
		WHERE id = $1 AND user_id = $2
	`

	batch, err := scanBatch(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrBatchNotFound
		}
		log.Error("failed to get generation batch",
			slog.String("error", err.Error()),
			slog.String("batch_id", id.String()))
		return nil, MapError(err)
	}

	return batch, nil
}

// ListByTopic implements store.GenerationBatchStore.ListByTopic
func (s *PostgresGenerationBatchStore) ListByTopic(
	ctx context.Context,
	userID, topicID uuid.UUID,
) ([]*domain.GenerationBatch, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, topic_id, provider, model, prompt, width, height, config, created_at, updated_at
		FROM generation_batches
		WHERE user_id = $1 AND topic_id = $2
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, topicID)
	if err != nil {
		log.Error("failed to list generation batches",
			slog.String("error", err.Error()),
			slog.String("topic_id", topicID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	batches := []*domain.GenerationBatch{}
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch row: %w", err)
		}
		batches = append(batches, batch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batch rows: %w", err)
	}

	return batches, nil
}

// Delete implements store.GenerationBatchStore.Delete.
// The batch's tasks are removed first, cascading their generations, then
// the batch row itself. Callers compose both statements in one transaction
// via WithTx so a failure between them leaves the batch intact.
func (s *PostgresGenerationBatchStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	taskQuery := `
		DELETE FROM async_tasks
		WHERE id IN (
			SELECT g.async_task_id
			FROM generations g
			JOIN generation_batches b ON b.id = g.batch_id
			WHERE b.id = $1 AND b.user_id = $2
		)
	`
	if _, err := s.db.ExecContext(ctx, taskQuery, id, userID); err != nil {
		log.Error("failed to delete batch tasks",
			slog.String("error", err.Error()),
			slog.String("batch_id", id.String()))
		return MapError(err)
	}

	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM generation_batches WHERE id = $1 AND user_id = $2`,
		id,
		userID,
	)
	if err != nil {
		log.Error("failed to delete generation batch",
			slog.String("error", err.Error()),
			slog.String("batch_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrBatchNotFound
	}

	log.Info("generation batch deleted",
		slog.String("batch_id", id.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// WithTx implements store.GenerationBatchStore.WithTx
func (s *PostgresGenerationBatchStore) WithTx(tx *sql.Tx) store.GenerationBatchStore {
	return &PostgresGenerationBatchStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBatch reads one generation batch row.
func scanBatch(row rowScanner) (*domain.GenerationBatch, error) {
	var batch domain.GenerationBatch
	var width, height sql.NullInt64
	var configJSON []byte

	err := row.Scan(
		&batch.ID,
		&batch.UserID,
		&batch.TopicID,
		&batch.Provider,
		&batch.Model,
		&batch.Prompt,
		&width,
		&height,
		&configJSON,
		&batch.CreatedAt,
		&batch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if width.Valid {
		v := int(width.Int64)
		batch.Width = &v
	}
	if height.Valid {
		v := int(height.Int64)
		batch.Height = &v
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &batch.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal batch config: %w", err)
		}
	}

	return &batch, nil
}
