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

// PostgresAsyncTaskStore implements the store.AsyncTaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAsyncTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAsyncTaskStore creates a new PostgreSQL implementation of the
// AsyncTaskStore interface.
func NewPostgresAsyncTaskStore(db store.DBTX, logger *slog.Logger) *PostgresAsyncTaskStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAsyncTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresAsyncTaskStore implements store.AsyncTaskStore
var _ store.AsyncTaskStore = (*PostgresAsyncTaskStore)(nil)

// CreateMultiple implements store.AsyncTaskStore.CreateMultiple
func (s *PostgresAsyncTaskStore) CreateMultiple(
	ctx context.Context,
	tasks []*domain.AsyncTask,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(tasks) == 0 {
		return nil
	}

	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			log.Warn("task validation failed during create",
				slog.String("error", err.Error()),
				slog.String("task_id", t.ID.String()))
			return err
		}
	}

	query := `
		INSERT INTO async_tasks (id, user_id, type, status, error, created_at, updated_at)
		VALUES
	`
	args := make([]any, 0, len(tasks)*7)
	for i, t := range tasks {
		if i > 0 {
			query += ","
		}
		base := i * 7
		query += fmt.Sprintf(" ($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)

		errJSON, err := marshalTaskError(t.Error)
		if err != nil {
			return err
		}

		args = append(args, t.ID, t.UserID, t.Type, t.Status, errJSON, t.CreatedAt, t.UpdatedAt)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to create async tasks",
			slog.String("error", err.Error()),
			slog.Int("count", len(tasks)))
		return MapError(err)
	}

	log.Debug("async tasks created", slog.Int("count", len(tasks)))
	return nil
}

// GetByID implements store.AsyncTaskStore.GetByID
func (s *PostgresAsyncTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AsyncTask, error) {
	query := `
		SELECT id, user_id, type, status, error, created_at, updated_at
		FROM async_tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}

	return task, nil
}

// MarkTerminal implements store.AsyncTaskStore.MarkTerminal.
// The WHERE clause keeps the transition monotonic: only a pending row can
// move to a terminal status, so duplicate or late updates touch nothing.
func (s *PostgresAsyncTaskStore) MarkTerminal(
	ctx context.Context,
	taskID uuid.UUID,
	status domain.TaskStatus,
	taskErr *domain.TaskError,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if status != domain.TaskStatusSuccess && status != domain.TaskStatusError {
		return false, domain.ErrInvalidTaskStatus
	}

	errJSON, err := marshalTaskError(taskErr)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE async_tasks
		SET status = $1, error = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		status,
		errJSON,
		time.Now().UTC(),
		taskID,
		domain.TaskStatusPending,
	)
	if err != nil {
		log.Error("failed to update task status",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)))
		return false, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Task missing or already terminal; treat as a no-op.
		log.Warn("no pending task matched status update",
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)))
		return false, nil
	}

	log.Info("task reached terminal status",
		slog.String("task_id", taskID.String()),
		slog.String("status", string(status)))
	return true, nil
}

// MarkBatchError implements store.AsyncTaskStore.MarkBatchError
func (s *PostgresAsyncTaskStore) MarkBatchError(
	ctx context.Context,
	batchID uuid.UUID,
	taskErr *domain.TaskError,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	errJSON, err := marshalTaskError(taskErr)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE async_tasks
		SET status = $1, error = $2, updated_at = $3
		WHERE status = $4 AND id IN (
			SELECT async_task_id FROM generations WHERE batch_id = $5
		)
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		domain.TaskStatusError,
		errJSON,
		time.Now().UTC(),
		domain.TaskStatusPending,
		batchID,
	)
	if err != nil {
		log.Error("failed to mark batch tasks as errored",
			slog.String("error", err.Error()),
			slog.String("batch_id", batchID.String()))
		return 0, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("batch tasks marked as errored",
		slog.String("batch_id", batchID.String()),
		slog.Int64("count", rowsAffected))
	return rowsAffected, nil
}

// ListPendingOlderThan implements store.AsyncTaskStore.ListPendingOlderThan
func (s *PostgresAsyncTaskStore) ListPendingOlderThan(
	ctx context.Context,
	age time.Duration,
) ([]*domain.AsyncTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, type, status, error, created_at, updated_at
		FROM async_tasks
		WHERE status = $1 AND updated_at < $2
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(
		ctx,
		query,
		domain.TaskStatusPending,
		time.Now().UTC().Add(-age),
	)
	if err != nil {
		log.Error("failed to query stale pending tasks",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.AsyncTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// WithTx implements store.AsyncTaskStore.WithTx
func (s *PostgresAsyncTaskStore) WithTx(tx *sql.Tx) store.AsyncTaskStore {
	return &PostgresAsyncTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// marshalTaskError serializes a structured task error for the jsonb column.
// A nil error stores SQL NULL.
func marshalTaskError(taskErr *domain.TaskError) (any, error) {
	if taskErr == nil {
		return nil, nil
	}
	raw, err := json.Marshal(taskErr)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task error: %w", err)
	}
	return raw, nil
}

// scanTask reads one async task row.
func scanTask(row rowScanner) (*domain.AsyncTask, error) {
	var task domain.AsyncTask
	var errJSON []byte

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Type,
		&task.Status,
		&errJSON,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(errJSON) > 0 {
		var taskErr domain.TaskError
		if err := json.Unmarshal(errJSON, &taskErr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task error: %w", err)
		}
		task.Error = &taskErr
	}

	return &task, nil
}
